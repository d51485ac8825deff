package constants

// TaskStatus is the lifecycle state of a PropertyTask. Parsers only emit TaskOutstanding.
type TaskStatus string

const (
	TaskOutstanding TaskStatus = "outstanding"
	TaskInProgress  TaskStatus = "in_progress"
	TaskDone        TaskStatus = "done"
)

// Direction encodes the sign of a statement amount.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Method records which path produced an extraction.
type Method string

const (
	MethodAI    Method = "ai"
	MethodRegex Method = "regex"
)

// Mode is the caller's extraction preference.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeAI    Mode = "ai"
	ModeRegex Mode = "regex"
)

// ParseMode returns the mode for s, defaulting to ModeAuto for empty or unknown values.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAuto, ModeAI, ModeRegex:
		return Mode(s), true
	case "":
		return ModeAuto, true
	}
	return ModeAuto, false
}

// Source tags every emitted record with the adapter that produced it.
type Source string

const (
	SourceBankCSV    Source = "bank_csv"
	SourceBankXLSX   Source = "bank_xlsx"
	SourceBankPDF    Source = "bank_pdf"
	SourceSurveyPDF  Source = "survey_pdf"
	SourceSurveyText Source = "survey_text"
)

// RunKind labels a persisted parse run.
type RunKind string

const (
	RunEmail     RunKind = "email"
	RunQuote     RunKind = "quote"
	RunReceipt   RunKind = "receipt"
	RunStatement RunKind = "statement"
	RunSurvey    RunKind = "survey"
	RunValuation RunKind = "valuation"
)
