package llm

import (
	"strings"
	"time"
)

// prompts carry at most this many characters of document text
const maxPromptText = 6000

// EmailRequest is the input to BuildEmailPrompt.
type EmailRequest struct {
	Text    string
	Subject string
	Sender  string
	Anchor  time.Time
}

// BuildEmailPrompt asks for extract.ExtractedEmailData as strict JSON.
func BuildEmailPrompt(req EmailRequest) Prompt {
	parts := []string{
		"You extract facts from UK household emails. Return ONLY a JSON object that matches the JSON Schema provided; no prose, no markdown.",
		"contacts: people or businesses with their email, phone, company and role when visible.",
		"prices: every amount in GBP as a plain number without symbols; type is 'quote' for a firm quotation, 'estimate' for approximate figures, otherwise 'mention'.",
		"dates: ISO-8601 (YYYY-MM-DD); kind is 'relative' when the text says e.g. 'next Wednesday'.",
		anchorLine(req.Anchor),
		"followUps: actions the reader is asked to take, with dueDate when one is given.",
		"topics: a few short lowercase labels such as plumbing, electrical, roofing, heating, garden, school, medical, insurance, labour, materials.",
		"summary: one sentence, at most 200 characters.",
		"Use empty arrays when nothing is found. Never output null; omit absent optional fields.",
	}

	var b strings.Builder
	if s := strings.TrimSpace(req.Subject); s != "" {
		b.WriteString("Subject: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(req.Sender); s != "" {
		b.WriteString("From: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\nBody:\n")
	b.WriteString(clip(req.Text))

	return Prompt{
		Name:   "email",
		System: strings.Join(parts, " "),
		User:   b.String(),
		Schema: EmailSchema(),
	}
}

// BuildQuotePrompt asks for QuoteFields as strict JSON.
func BuildQuotePrompt(text string, anchor time.Time) Prompt {
	parts := []string{
		"You read UK contractor quotes, invoices and receipts. Return ONLY a JSON object that matches the JSON Schema provided; no prose, no markdown.",
		"lineItems: one entry per priced line, amount as a plain GBP number.",
		"category is exactly one of labour, materials, fixtures, sundries, vat, other. Put VAT as its own 'vat' line when the document shows a VAT amount.",
		"Tie-breaker: fixed fittings (toilets, basins, radiators, boilers) are 'fixtures'; consumables and raw goods are 'materials'; time and workmanship are 'labour'; skips, parking and travel are 'sundries'.",
		"total: the document's stated grand total, only if it states one. vatRate: a fraction (0.2 for 20%), only if stated.",
		"Do not include subtotal, deposit or balance lines as line items.",
		"date: the document date as YYYY-MM-DD.",
		anchorLine(anchor),
		"Never output null; omit absent optional fields.",
	}
	return Prompt{
		Name:   "quote",
		System: strings.Join(parts, " "),
		User:   "Document text:\n" + clip(text),
		Schema: QuoteSchema(),
	}
}

func anchorLine(anchor time.Time) string {
	if anchor.IsZero() {
		return "Leave out dates you cannot determine without knowing today's date."
	}
	return "Resolve relative dates against today's date: " + anchor.Format("2006-01-02 (Monday)") + "."
}

func clip(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxPromptText {
		return string(r[:maxPromptText]) + "\n…(truncated)"
	}
	return text
}
