// Package statement turns bank statement exports (CSV, XLSX, PDF) into a flat list
// of categorised transactions.
package statement

import (
	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// Transaction is one statement line. Amount is always positive; Direction carries the sign.
type Transaction struct {
	ID                 string                   `json:"id"`
	Date               string                   `json:"date"` // YYYY-MM-DD
	Description        string                   `json:"description"`
	Amount             utils.Money              `json:"amount"`
	Direction          constants.Direction      `json:"direction"`
	Category           constants.BudgetCategory `json:"category"`
	CategoryConfidence float64                  `json:"categoryConfidence"`
	BankCategory       string                   `json:"bankCategory,omitempty"`
	Type               string                   `json:"type,omitempty"`
	Reference          string                   `json:"reference,omitempty"`
	Counterparty       string                   `json:"counterparty,omitempty"`
	Balance            *utils.Money             `json:"balance,omitempty"`
	Confidence         float64                  `json:"confidence"`
	Source             constants.Source         `json:"source"`
	Warnings           []string                 `json:"warnings,omitempty"`
}

// Signed returns the amount with debits negative.
func (t Transaction) Signed() utils.Money {
	if t.Direction == constants.Debit {
		return utils.NewMoney(t.Amount.Neg())
	}
	return t.Amount
}

type Metadata struct {
	FileName    string      `json:"fileName,omitempty"`
	Format      string      `json:"format,omitempty"`
	Bank        string      `json:"bank,omitempty"`
	Method      string      `json:"method,omitempty"`
	RowsRead    int         `json:"rowsRead"`
	Parsed      int         `json:"parsed"`
	Skipped     int         `json:"skipped"`
	PeriodStart string      `json:"periodStart,omitempty"`
	PeriodEnd   string      `json:"periodEnd,omitempty"`
	TotalIn     utils.Money `json:"totalIn"`
	TotalOut    utils.Money `json:"totalOut"`
}

// StatementParseResult is Success=false only when nothing usable could be read from
// the input; problems with individual rows are Warnings.
type StatementParseResult struct {
	Success      bool          `json:"success"`
	Transactions []Transaction `json:"transactions"`
	Warnings     []string      `json:"warnings"`
	Errors       []string      `json:"errors"`
	Metadata     Metadata      `json:"metadata"`
}

// Input is one uploaded statement. Bank is an optional hint; it is detected from the
// content when empty.
type Input struct {
	FileName string
	Data     []byte
	Bank     string
}
