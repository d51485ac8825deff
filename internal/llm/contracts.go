package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer sends one prompt to a hosted model and returns the raw message content.
// Retries and backoff are the implementation's concern.
type Completer interface {
	Complete(ctx context.Context, p Prompt) ([]byte, error)
}

// Prompt is a strict-JSON extraction request.
type Prompt struct {
	Name   string // "email" | "quote", for logs and cache keys
	System string
	User   string
	Schema map[string]any
}

// FailureKind classifies why the AI path produced nothing usable.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureTimeout   FailureKind = "timeout"
	FailureNoJSON    FailureKind = "no_json"
	FailureSchema    FailureKind = "schema"
	FailureDecode    FailureKind = "decode"
)

type ParseFailure struct {
	Kind FailureKind
	Err  error
}

func (f *ParseFailure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *ParseFailure) Unwrap() error { return f.Err }

// Result is either a decoded value or the reason there is none. Callers branch on
// Failure instead of recovering from errors.
type Result[T any] struct {
	Value   T
	Failure *ParseFailure
}

func (r Result[T]) OK() bool { return r.Failure == nil }

func Fail[T any](kind FailureKind, err error) Result[T] {
	return Result[T]{Failure: &ParseFailure{Kind: kind, Err: err}}
}

var ErrNoJSON = errors.New("no JSON object in model output")

// QuoteFields is what the model returns for a quote. Absent fields stay nil so
// the caller can tell "not found" from zero.
type QuoteFields struct {
	ContractorName *string           `json:"contractorName,omitempty"`
	Company        *string           `json:"company,omitempty"`
	Contact        *string           `json:"contact,omitempty"`
	Phone          *string           `json:"phone,omitempty"`
	Email          *string           `json:"email,omitempty"`
	Address        *string           `json:"address,omitempty"`
	Date           *string           `json:"date,omitempty"`
	LineItems      []QuoteItemFields `json:"lineItems"`
	VATRate        *float64          `json:"vatRate,omitempty"`
	Total          *float64          `json:"total,omitempty"`
}

type QuoteItemFields struct {
	Description string   `json:"description"`
	Category    *string  `json:"category,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
	Amount      float64  `json:"amount"`
}
