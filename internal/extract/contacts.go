package extract

import (
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/household-extractor/internal/patterns"
)

const signatureLines = 6

var (
	signOffRe = regexp.MustCompile(`(?i)^(?:kind(?:est)?\s+|best\s+|warm(?:est)?\s+|many\s+)?(?:regards|thanks|thank\s+you|cheers|best|wishes|sincerely|yours(?:\s+sincerely|\s+faithfully|\s+truly)?|all\s+the\s+best)\s*[,.!]?$`)
	companyRe = regexp.MustCompile(`(?i)\b(?:ltd|limited|llp|plc|and\s+sons|services|plumbing|electrical|electrics|builders|roofing|heating|construction|contractors|decorators|glazing)\b|&\s*sons\b`)
	roleRe    = regexp.MustCompile(`(?i)\b(?:director|manager|owner|proprietor|plumber|electrician|engineer|surveyor|estimator|builder|partner|administrator)\b`)
	nameWord  = regexp.MustCompile(`^[A-Z][A-Za-z'\-]*\.?$`)

	nameCaser = cases.Title(language.BritishEnglish)
)

// FindContacts pulls emails and phones from anywhere in text and attaches them,
// along with a name, company and role, to the signature block where it can.
// sender is an optional "Name <address>" header.
func FindContacts(text, sender string) []Contact {
	block, afterSignOff := signatureBlock(nonEmptyLines(text))

	var sig Contact
	for i, l := range block {
		switch {
		case sig.Name == "" && looksLikeName(l, afterSignOff && i == 0):
			sig.Name = displayName(l)
		case sig.Company == "" && companyRe.MatchString(l) && !strings.Contains(l, "@") && len(strings.Fields(l)) <= 6:
			sig.Company = strings.Trim(l, " ,")
		case sig.Role == "" && roleRe.MatchString(l) && len(strings.Fields(l)) <= 4:
			sig.Role = strings.Trim(l, " ,")
		}
	}
	blockText := strings.Join(block, "\n")
	if es := patterns.FindEmails(blockText); len(es) > 0 {
		sig.Email = es[0]
	}
	if ps := patterns.FindPhones(blockText); len(ps) > 0 {
		sig.Phone = ps[0]
	}

	var others []Contact
	if sc, ok := parseSender(sender); ok {
		if sig.Email == "" || strings.EqualFold(sig.Email, sc.Email) {
			sig.Email = sc.Email
			if sig.Name == "" {
				sig.Name = sc.Name
			}
		} else {
			others = append(others, sc)
		}
	}

	usedEmails := map[string]struct{}{}
	usedPhones := map[string]struct{}{}
	markUsed := func(c Contact) {
		if c.Email != "" {
			usedEmails[strings.ToLower(c.Email)] = struct{}{}
		}
		if c.Phone != "" {
			usedPhones[phoneKey(c.Phone)] = struct{}{}
		}
	}
	markUsed(sig)
	for _, c := range others {
		markUsed(c)
	}

	identified := sig.Name != "" || sig.Company != ""
	for _, e := range patterns.FindEmails(text) {
		if _, ok := usedEmails[strings.ToLower(e)]; ok {
			continue
		}
		if identified && sig.Email == "" {
			sig.Email = e
		} else {
			others = append(others, Contact{Email: e})
		}
		usedEmails[strings.ToLower(e)] = struct{}{}
	}
	for _, p := range patterns.FindPhones(text) {
		if _, ok := usedPhones[phoneKey(p)]; ok {
			continue
		}
		if identified && sig.Phone == "" {
			sig.Phone = p
		} else {
			others = append(others, Contact{Phone: p})
		}
		usedPhones[phoneKey(p)] = struct{}{}
	}

	out := make([]Contact, 0, len(others)+1)
	if sig != (Contact{}) {
		out = append(out, sig)
	}
	return append(out, others...)
}

// signatureBlock returns the lines after the last sign-off, or the trailing lines
// of the message when there is none.
func signatureBlock(lines []string) ([]string, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if !signOffRe.MatchString(lines[i]) {
			continue
		}
		rest := lines[i+1:]
		if len(rest) == 0 {
			break
		}
		if len(rest) > signatureLines {
			rest = rest[:signatureLines]
		}
		return rest, true
	}
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return lines, false
}

func looksLikeName(line string, allowSingle bool) bool {
	if strings.ContainsAny(line, "@0123456789:") || companyRe.MatchString(line) || roleRe.MatchString(line) {
		return false
	}
	if signOffRe.MatchString(line) {
		return false
	}
	words := strings.Fields(strings.TrimRight(line, ","))
	minWords := 2
	if allowSingle {
		minWords = 1
	}
	if len(words) < minWords || len(words) > 4 {
		return false
	}
	for _, w := range words {
		if !nameWord.MatchString(w) {
			return false
		}
	}
	return true
}

func displayName(line string) string {
	line = strings.TrimRight(strings.TrimSpace(line), ",")
	if line == strings.ToUpper(line) {
		return nameCaser.String(strings.ToLower(line))
	}
	return line
}

func parseSender(sender string) (Contact, bool) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return Contact{}, false
	}
	if addr, err := mail.ParseAddress(sender); err == nil {
		return Contact{Name: strings.TrimSpace(addr.Name), Email: addr.Address}, true
	}
	email := patterns.EmailRe.FindString(sender)
	if email == "" {
		return Contact{}, false
	}
	name := strings.Trim(strings.Replace(sender, email, "", 1), ` <>"'`)
	return Contact{Name: collapseSpace(name), Email: email}, true
}

// phoneKey reduces a UK number to its national digits so formatting differences compare equal.
func phoneKey(p string) string {
	d := patterns.DigitsOnly(p)
	d = strings.TrimPrefix(d, "00")
	if strings.HasPrefix(d, "44") {
		d = "0" + strings.TrimPrefix(strings.TrimPrefix(d, "44"), "0")
	}
	return d
}
