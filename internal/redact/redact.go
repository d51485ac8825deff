// Package redact strips personal data out of text and extraction results before
// they are logged or shown outside the household.
package redact

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

const (
	EmailPlaceholder    = "[EMAIL]"
	PhonePlaceholder    = "[PHONE]"
	CardPlaceholder     = "[CARD]"
	SortCodePlaceholder = "[SORT_CODE]"
	AccountPlaceholder  = "[ACCOUNT]"
	PostcodePlaceholder = "[POSTCODE]"
)

var (
	cardRe     = regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`)
	sortCodeRe = regexp.MustCompile(`\b\d{2}-\d{2}-\d{2}\b`)
	accountRe  = regexp.MustCompile(`(?i)\b(?:account(?:\s+(?:no|number))?|acc(?:\s+no)?|a/c)\.?\s*:?\s*(\d{8})\b`)
	bare8Re    = regexp.MustCompile(`\b\d{8}\b`)

	// an address cut short by truncation: "dave.smith@smithplumb..."
	emailTailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]*@[A-Za-z0-9.\-]*\.\.\.$`)
)

// Redact replaces emails, UK phone numbers, card numbers, sort codes, account
// numbers and postcodes in text with placeholders.
func Redact(text string) string {
	if text == "" {
		return text
	}
	text = patterns.EmailRe.ReplaceAllString(text, EmailPlaceholder)
	text = emailTailRe.ReplaceAllString(text, EmailPlaceholder+"...")
	text = redactPhones(text)
	text = cardRe.ReplaceAllStringFunc(text, func(m string) string {
		if n := len(patterns.DigitsOnly(m)); n >= 13 && n <= 19 && luhn(patterns.DigitsOnly(m)) {
			return CardPlaceholder
		}
		return m
	})
	text = sortCodeRe.ReplaceAllString(text, SortCodePlaceholder)
	text = accountRe.ReplaceAllStringFunc(text, func(m string) string {
		return bare8Re.ReplaceAllString(m, AccountPlaceholder)
	})
	text = patterns.PostcodeRe.ReplaceAllString(text, PostcodePlaceholder)
	return text
}

// redactPhones replaces exactly the spans FindPhones accepts, so reference numbers
// that merely look phone-shaped survive.
func redactPhones(text string) string {
	phones := patterns.FindPhones(text)
	if len(phones) == 0 {
		return text
	}
	// longest first so a number never leaves a fragment of a longer one behind
	for i := 1; i < len(phones); i++ {
		for j := i; j > 0 && len(phones[j]) > len(phones[j-1]); j-- {
			phones[j], phones[j-1] = phones[j-1], phones[j]
		}
	}
	for _, p := range phones {
		text = strings.ReplaceAll(text, p, PhonePlaceholder)
	}
	return text
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// RedactEmailData masks contact details and every free-text field of d.
// Names and companies are kept; they are what makes the result useful.
func RedactEmailData(d extract.ExtractedEmailData) extract.ExtractedEmailData {
	out := extract.ExtractedEmailData{
		Contacts:  make([]extract.Contact, len(d.Contacts)),
		Prices:    make([]extract.Price, len(d.Prices)),
		Dates:     make([]extract.DateMention, len(d.Dates)),
		FollowUps: make([]extract.FollowUp, len(d.FollowUps)),
		Topics:    append([]string{}, d.Topics...),
		Summary:   Redact(d.Summary),
	}
	for i, c := range d.Contacts {
		if c.Email != "" {
			c.Email = EmailPlaceholder
		}
		if c.Phone != "" {
			c.Phone = PhonePlaceholder
		}
		out.Contacts[i] = c
	}
	for i, p := range d.Prices {
		p.Context = Redact(p.Context)
		out.Prices[i] = p
	}
	for i, dm := range d.Dates {
		dm.Context = Redact(dm.Context)
		out.Dates[i] = dm
	}
	for i, f := range d.FollowUps {
		f.Action = Redact(f.Action)
		out.FollowUps[i] = f
	}
	return out
}
