package extract

import (
	"time"

	"github.com/joseph-ayodele/household-extractor/constants"
)

// PriceType says how firmly an amount was stated.
type PriceType string

const (
	PriceQuote    PriceType = "quote"
	PriceEstimate PriceType = "estimate"
	PriceMention  PriceType = "mention"
)

// DateKind distinguishes dates written out in full from ones resolved against the anchor.
type DateKind string

const (
	DateAbsolute DateKind = "absolute"
	DateRelative DateKind = "relative"
)

type Contact struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Role    string `json:"role,omitempty"`
}

type Price struct {
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
	Type     PriceType `json:"type"`
	Context  string    `json:"context,omitempty"`
}

type DateMention struct {
	Date    string   `json:"date"` // YYYY-MM-DD
	Text    string   `json:"text"`
	Kind    DateKind `json:"kind"`
	Context string   `json:"context,omitempty"`
}

type FollowUp struct {
	Action  string `json:"action"`
	DueDate string `json:"dueDate,omitempty"`
}

// ExtractedEmailData is the flat bag of candidate facts pulled from one message.
// The AI and regex paths both produce exactly this shape.
type ExtractedEmailData struct {
	Contacts  []Contact     `json:"contacts"`
	Prices    []Price       `json:"prices"`
	Dates     []DateMention `json:"dates"`
	FollowUps []FollowUp    `json:"followUps"`
	Topics    []string      `json:"topics"`
	Summary   string        `json:"summary"`
}

// EmptyData returns an ExtractedEmailData whose collections encode as [] rather than null.
func EmptyData() ExtractedEmailData {
	return ExtractedEmailData{
		Contacts:  []Contact{},
		Prices:    []Price{},
		Dates:     []DateMention{},
		FollowUps: []FollowUp{},
		Topics:    []string{},
	}
}

// Normalize replaces nil collections with empty ones.
func (d ExtractedEmailData) Normalize() ExtractedEmailData {
	if d.Contacts == nil {
		d.Contacts = []Contact{}
	}
	if d.Prices == nil {
		d.Prices = []Price{}
	}
	if d.Dates == nil {
		d.Dates = []DateMention{}
	}
	if d.FollowUps == nil {
		d.FollowUps = []FollowUp{}
	}
	if d.Topics == nil {
		d.Topics = []string{}
	}
	return d
}

// IsEmpty reports whether nothing at all was found.
func (d ExtractedEmailData) IsEmpty() bool {
	return len(d.Contacts) == 0 && len(d.Prices) == 0 && len(d.Dates) == 0 &&
		len(d.FollowUps) == 0 && len(d.Topics) == 0 && d.Summary == ""
}

// EmailExtraction wraps the data with how it was produced.
type EmailExtraction struct {
	Data       ExtractedEmailData `json:"data"`
	Method     constants.Method   `json:"method"`
	Warnings   []string           `json:"warnings"`
	Confidence float64            `json:"confidence"`
	Language   string             `json:"language,omitempty"`
}

// Options carries the context around a piece of text.
type Options struct {
	Subject string
	Sender  string
	// Anchor is "today" for relative dates. Zero disables relative resolution.
	Anchor time.Time
}
