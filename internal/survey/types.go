// Package survey reads RICS-style property survey reports and lists the remedial
// work they recommend as tasks.
package survey

import (
	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Impact string

const (
	ImpactSafety     Impact = "safety"
	ImpactStructural Impact = "structural"
	ImpactCompliance Impact = "compliance"
	ImpactCosmetic   Impact = "cosmetic"
	ImpactEfficiency Impact = "efficiency"
)

type Timeframe string

const (
	TimeframeImmediate Timeframe = "immediate"
	Timeframe3Months   Timeframe = "within_3_months"
	Timeframe12Months  Timeframe = "within_12_months"
	TimeframeMonitor   Timeframe = "monitor"
)

// PropertyTask is one recommended piece of work. Parsers only ever emit
// constants.TaskOutstanding; the status is the owner's to change afterwards.
type PropertyTask struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	Category        string               `json:"category"`
	Priority        Priority             `json:"priority"`
	Impact          Impact               `json:"impact"`
	Timeframe       Timeframe            `json:"timeframe"`
	Status          constants.TaskStatus `json:"status"`
	EstimatedCost   *utils.Money         `json:"estimatedCost,omitempty"`
	ConditionRating int                  `json:"conditionRating,omitempty"`
	Section         string               `json:"section,omitempty"`
	Source          constants.Source     `json:"source"`
}

type Metadata struct {
	FileName       string           `json:"fileName,omitempty"`
	Method         string           `json:"method,omitempty"`
	SurveyType     string           `json:"surveyType,omitempty"`
	InspectionDate string           `json:"inspectionDate,omitempty"`
	TaskCount      int              `json:"taskCount"`
	ByPriority     map[Priority]int `json:"byPriority"`
	EstimatedTotal utils.Money      `json:"estimatedTotal"`
}

type SurveyParseResult struct {
	Success  bool           `json:"success"`
	Tasks    []PropertyTask `json:"tasks"`
	Warnings []string       `json:"warnings"`
	Errors   []string       `json:"errors"`
	Metadata Metadata       `json:"metadata"`
}

// Input is either a file (PDF or text, by extension) or Text directly.
type Input struct {
	FileName string
	Data     []byte
	Text     string
}
