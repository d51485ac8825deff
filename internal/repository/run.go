package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/common"
)

// Run is one persisted extraction: the full result as JSON plus a few columns to filter on.
type Run struct {
	ID           uuid.UUID         `json:"id"`
	Kind         constants.RunKind `json:"kind"`
	Source       string            `json:"source"`
	Method       string            `json:"method"`
	Success      bool              `json:"success"`
	WarningCount int               `json:"warningCount"`
	Payload      json.RawMessage   `json:"payload"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// RunStore persists parse runs. GetRun returns common.ErrNotFound for unknown ids.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	ListRuns(ctx context.Context, kind constants.RunKind, limit int) ([]Run, error)
	Close()
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NewRun marshals result into a Run with a fresh id.
func NewRun(kind constants.RunKind, source, method string, success bool, warnings int, result any) (Run, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Run{}, fmt.Errorf("marshal %s run: %w", kind, err)
	}
	return Run{
		ID:           uuid.New(),
		Kind:         kind,
		Source:       source,
		Method:       method,
		Success:      success,
		WarningCount: warnings,
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func errRunNotFound(id uuid.UUID) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("run %s not found", id), common.ErrNotFound)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}

const runsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT '',
	success       BOOLEAN NOT NULL,
	warning_count INTEGER NOT NULL DEFAULT 0,
	payload       TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
)`

const runsIndex = `CREATE INDEX IF NOT EXISTS runs_kind_created_idx ON runs (kind, created_at DESC)`
