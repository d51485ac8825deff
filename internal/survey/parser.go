package survey

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/extract"
	"github.com/joseph-ayodele/household-extractor/internal/ocr"
	"github.com/joseph-ayodele/household-extractor/internal/patterns"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

// TextExtractor is the slice of the OCR service the PDF path needs.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, name string, data []byte) (ocr.ExtractionResult, error)
}

type Parser struct {
	text   TextExtractor
	logger *slog.Logger
}

func NewParser(text TextExtractor, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{text: text, logger: logger}
}

var (
	// "Condition rating 3", "CR3", "Condition Rating: 2"
	ratingRe  = regexp.MustCompile(`(?i)\b(?:condition\s+rating|CR)\s*[:\-]?\s*([123])\b`)
	// RICS element headings: "D2 Roof coverings", "F1 Electricity"
	elementRe = regexp.MustCompile(`^([D-H]\d{1,2})\s+([A-Z][A-Za-z ,&/\-]{2,60}?)(?:\s{2,}.*|\s+(?i:condition\s+rating|CR)\s*[:\-]?\s*[123].*)?$`)
	bulletRe  = regexp.MustCompile(`^(?:[-•*▪◦·–]|\d{1,2}[.)]|\(?[a-z][.)])\s+(.+)$`)

	urgentHeadingRe  = regexp.MustCompile(`(?i)^(?:urgent|immediate|immediately|high\s+priority|safety)(?:\s+(?:repairs?|action|attention|works?|items?|matters))?\s*:?$`)
	soonHeadingRe    = regexp.MustCompile(`(?i)^(?:soon|short[\s\-]term|medium\s+priority|within\s+(?:3|three)\s+months)(?:\s+(?:repairs?|action|works?|items?))?\s*:?$`)
	mediumHeadingRe  = regexp.MustCompile(`(?i)^(?:medium[\s\-]term|within\s+(?:12|twelve)\s+months|non[\s\-]urgent|routine)(?:\s+(?:repairs?|action|works?|items?|maintenance))?\s*:?$`)
	monitorHeadingRe = regexp.MustCompile(`(?i)^(?:monitor|long[\s\-]term|low\s+priority|future\s+maintenance|keep\s+under\s+review)(?:\s+(?:repairs?|items?|works?))?\s*:?$`)

	surveyTypeRe  = regexp.MustCompile(`(?i)\b(RICS\s+Home\s+Survey\s*[–\-]?\s*Level\s*[123]|Level\s*[123]\s+survey|HomeBuyer\s+Report|Building\s+Survey|Condition\s+Report|Snagging\s+(?:Survey|Report))\b`)
	inspectionRe  = regexp.MustCompile(`(?i)(?:date\s+of\s+(?:the\s+)?inspection|inspection\s+date|inspected\s+on)`)
	sentenceEndRe = regexp.MustCompile(`[.!?](?:\s|$)`)
)

const maxTitleLength = 120

// scope is the heading context the current line sits under.
type scope struct {
	section   string
	rating    int
	priority  Priority
	timeframe Timeframe
	explicit  bool // a rating or priority heading is in force
}

func ratingPriority(r int) (Priority, Timeframe) {
	switch r {
	case 3:
		return PriorityHigh, TimeframeImmediate
	case 2:
		return PriorityMedium, Timeframe12Months
	default:
		return PriorityLow, TimeframeMonitor
	}
}

// Parse reads a survey from PDF (through the OCR service) or plain text.
func (p *Parser) Parse(ctx context.Context, in Input) SurveyParseResult {
	start := time.Now()
	res := SurveyParseResult{
		Tasks:    []PropertyTask{},
		Warnings: []string{},
		Errors:   []string{},
		Metadata: Metadata{FileName: in.FileName, ByPriority: map[Priority]int{}},
	}

	text, source, ok := p.readText(ctx, in, &res)
	if !ok {
		return res
	}
	res.Success = true
	parseText(text, source, &res)

	if len(res.Tasks) == 0 {
		res.Warnings = append(res.Warnings, "no recommended works found")
	}
	total := decimal.Zero
	for _, t := range res.Tasks {
		res.Metadata.ByPriority[t.Priority]++
		if t.EstimatedCost != nil {
			total = total.Add(t.EstimatedCost.Decimal)
		}
	}
	res.Metadata.TaskCount = len(res.Tasks)
	res.Metadata.EstimatedTotal = utils.NewMoney(total)

	p.logger.Info("survey.parse.done",
		"file", in.FileName,
		"tasks", len(res.Tasks),
		"high", res.Metadata.ByPriority[PriorityHigh],
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Parser) readText(ctx context.Context, in Input, res *SurveyParseResult) (string, constants.Source, bool) {
	if strings.TrimSpace(in.Text) != "" {
		res.Metadata.Method = ocr.MethodPlain
		return in.Text, constants.SourceSurveyText, true
	}
	if len(in.Data) == 0 {
		res.Errors = append(res.Errors, "empty survey")
		return "", "", false
	}

	switch constants.MapExtToFormat(filepath.Ext(in.FileName)) {
	case constants.PDF:
		if p.text == nil {
			res.Errors = append(res.Errors, "pdf surveys need the ocr service")
			return "", "", false
		}
		ext, err := p.text.ExtractBytes(ctx, in.FileName, in.Data)
		res.Warnings = append(res.Warnings, ext.Warnings...)
		if err != nil {
			res.Errors = append(res.Errors, "unreadable pdf: "+err.Error())
			return "", "", false
		}
		if strings.TrimSpace(ext.Text) == "" {
			res.Errors = append(res.Errors, "pdf contains no text")
			return "", "", false
		}
		res.Metadata.Method = ext.Method
		return ext.Text, constants.SourceSurveyPDF, true
	case constants.TXT, constants.HTML, "":
		text := string(in.Data)
		if extract.LooksLikeHTML(text) {
			if t, err := extract.HTMLToText(text); err == nil {
				text = t
			}
		}
		if strings.TrimSpace(text) == "" {
			res.Errors = append(res.Errors, "empty survey")
			return "", "", false
		}
		res.Metadata.Method = ocr.MethodPlain
		return text, constants.SourceSurveyText, true
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unsupported survey format %q", filepath.Ext(in.FileName)))
		return "", "", false
	}
}

func parseText(text string, source constants.Source, res *SurveyParseResult) {
	if m := surveyTypeRe.FindString(text); m != "" {
		res.Metadata.SurveyType = strings.Join(strings.Fields(m), " ")
	}

	var (
		cur  scope
		last *PropertyTask
	)
	lines := strings.Split(strings.ReplaceAll(text, "\f", "\n"), "\n")
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			last = nil
			continue
		}
		if inspectionRe.MatchString(line) {
			if d, ok := extract.ResolveDate(line, time.Time{}); ok && res.Metadata.InspectionDate == "" {
				res.Metadata.InspectionDate = utils.FormatYMD(d)
			}
			continue
		}

		if m := elementRe.FindStringSubmatch(line); m != nil {
			cur = scope{section: m[1] + " " + strings.TrimSpace(m[2])}
			if r := ratingRe.FindStringSubmatch(line); r != nil {
				cur.setRating(r[1])
			}
			last = nil
			continue
		}
		if heading(line, &cur) {
			last = nil
			continue
		}
		if r := ratingRe.FindStringSubmatch(line); r != nil && len(line) < 40 {
			cur.setRating(r[1])
			last = nil
			continue
		}

		body, bullet := line, false
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			body, bullet = m[1], true
		}

		// wrapped continuation of the previous item
		if !bullet && last != nil && startsLower(line) {
			last.Description = last.Description + " " + line
			fillCost(last, line)
			continue
		}

		if !wantTask(cur, body, bullet) {
			last = nil
			continue
		}
		res.Tasks = append(res.Tasks, newTask(cur, body, source))
		last = &res.Tasks[len(res.Tasks)-1]
	}
}

func (c *scope) setRating(s string) {
	r, _ := strconv.Atoi(s)
	c.rating = r
	c.priority, c.timeframe = ratingPriority(r)
	c.explicit = true
}

// heading applies a priority heading ("Urgent repairs", "Monitor") to c.
func heading(line string, c *scope) bool {
	set := func(p Priority, t Timeframe, name string) bool {
		*c = scope{section: name, priority: p, timeframe: t, explicit: true}
		return true
	}
	switch {
	case urgentHeadingRe.MatchString(line):
		return set(PriorityHigh, TimeframeImmediate, strings.TrimSuffix(line, ":"))
	case soonHeadingRe.MatchString(line):
		return set(PriorityMedium, Timeframe3Months, strings.TrimSuffix(line, ":"))
	case mediumHeadingRe.MatchString(line):
		return set(PriorityMedium, Timeframe12Months, strings.TrimSuffix(line, ":"))
	case monitorHeadingRe.MatchString(line):
		return set(PriorityLow, TimeframeMonitor, strings.TrimSuffix(line, ":"))
	}
	return false
}

// wantTask decides whether a line is a recommendation. Bullets under a rating or
// priority heading always are; everything else needs action wording, and
// condition rating 1 prose is never a task.
func wantTask(c scope, body string, bullet bool) bool {
	if c.explicit && c.rating != 1 && bullet {
		return true
	}
	if c.rating == 1 && !bullet {
		return false
	}
	return hasActionCue(body)
}

func newTask(c scope, body string, source constants.Source) PropertyTask {
	priority, timeframe := c.priority, c.timeframe
	if !c.explicit {
		priority, timeframe = priorityFromWording(body)
	}
	t := PropertyTask{
		ID:              uuid.New().String(),
		Title:           title(body),
		Description:     body,
		Category:        categoryOf(c.section, body),
		Priority:        priority,
		Impact:          impactOf(body),
		Timeframe:       timeframe,
		Status:          constants.TaskOutstanding,
		ConditionRating: c.rating,
		Section:         c.section,
		Source:          source,
	}
	fillCost(&t, body)
	return t
}

func fillCost(t *PropertyTask, text string) {
	if t.EstimatedCost != nil {
		return
	}
	if amts := patterns.FindAmounts(text); len(amts) > 0 {
		m := utils.NewMoney(amts[0].Value)
		t.EstimatedCost = &m
	}
}

func title(body string) string {
	s := body
	if loc := sentenceEndRe.FindStringIndex(s); loc != nil && loc[0] > 0 {
		s = s[:loc[0]]
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxTitleLength {
		s = strings.TrimSpace(string(r[:maxTitleLength])) + "..."
	}
	return s
}

func startsLower(s string) bool {
	for _, r := range s {
		return r >= 'a' && r <= 'z'
	}
	return false
}
