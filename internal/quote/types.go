package quote

import (
	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// QuoteLineItem is one priced entry of a quote or invoice. Category is inferred and
// may change if the keyword lists do.
type QuoteLineItem struct {
	ID          string                  `json:"id"`
	Description string                  `json:"description"`
	Category    constants.QuoteCategory `json:"category"`
	Quantity    *float64                `json:"quantity,omitempty"`
	UnitPrice   *utils.Money            `json:"unitPrice,omitempty"`
	Amount      utils.Money             `json:"amount"`
	Notes       string                  `json:"notes,omitempty"`
}

// ExtractedQuote is the normalized view of one contractor document.
//
// LabourTotal + MaterialsTotal + FixturesTotal + OtherTotal == Subtotal, and
// Total == Subtotal + VATAmount unless the document stated a different total,
// in which case the stated value is kept and Warnings says so.
type ExtractedQuote struct {
	ContractorName string `json:"contractorName"`
	Company        string `json:"company,omitempty"`
	Contact        string `json:"contact,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Address        string `json:"address,omitempty"`
	Date           string `json:"date,omitempty"`

	LineItems []QuoteLineItem `json:"lineItems"`

	Subtotal       utils.Money `json:"subtotal"`
	VATAmount      utils.Money `json:"vatAmount"`
	VATRate        *float64    `json:"vatRate,omitempty"`
	Total          utils.Money `json:"total"`
	LabourTotal    utils.Money `json:"labourTotal"`
	MaterialsTotal utils.Money `json:"materialsTotal"`
	FixturesTotal  utils.Money `json:"fixturesTotal"`
	OtherTotal     utils.Money `json:"otherTotal"`

	Confidence float64          `json:"confidence"`
	Warnings   []string         `json:"warnings"`
	Method     constants.Method `json:"method"`
}

// HasContact reports whether any contractor identity field was found.
func (q ExtractedQuote) HasContact() bool {
	return q.ContractorName != "" || q.Phone != "" || q.Email != ""
}
