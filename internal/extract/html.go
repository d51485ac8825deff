package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var htmlTagRe = regexp.MustCompile(`(?i)<(?:html|body|div|p|br|table|span|td|a)[\s>/]`)

var blockTags = map[string]bool{
	"p": true, "div": true, "tr": true, "li": true, "ul": true, "ol": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
	"section": true, "article": true, "header": true, "footer": true,
}

// LooksLikeHTML reports whether s carries markup worth stripping.
func LooksLikeHTML(s string) bool {
	return htmlTagRe.MatchString(s)
}

// HTMLToText renders an HTML email body as plain text, one block element per line.
func HTMLToText(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	writeText(&b, doc.Selection)
	return tidyLines(b.String()), nil
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch name {
		case "#text":
			b.WriteString(c.Text())
			return
		case "#comment", "script", "style", "head", "noscript", "title":
			return
		case "br":
			b.WriteByte('\n')
			return
		}
		block := blockTags[name]
		if block {
			b.WriteByte('\n')
		}
		writeText(b, c)
		switch {
		case block:
			b.WriteByte('\n')
		case name == "td" || name == "th":
			b.WriteByte(' ')
		}
	})
}

func tidyLines(s string) string {
	var out []string
	blank := false
	for _, l := range strings.Split(s, "\n") {
		l = collapseSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
