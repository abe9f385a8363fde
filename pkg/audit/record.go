// Package audit persists one append-only record per gate run: the input,
// every stage outcome, and the verdict. Records are write-once and keyed
// by run ID; the gate never reads them back.
package audit

import (
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/google/uuid"
)

// Record is the full decision trail of one run. Findings appear without
// their matched excerpts; the raw hit text stays out of durable storage.
type Record struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`

	Input gate.AnalysisInput `json:"input"`

	ScannerFindings []gate.SecretFinding `json:"scanner_findings"`
	Format          gate.FormatResult    `json:"format_result"`

	// SemanticSkipped marks the short-circuit path; SemanticAvailable is
	// false when the stage ran but failed. At most one of judgment and
	// failure is set.
	SemanticSkipped   bool                   `json:"semantic_skipped"`
	SemanticAvailable bool                   `json:"semantic_available"`
	SemanticFailure   string                 `json:"semantic_failure,omitempty"`
	Semantic          *gate.SemanticJudgment `json:"semantic_judgment,omitempty"`

	Verdict gate.Verdict `json:"verdict"`

	StageDurationsMS map[string]int64 `json:"stage_durations_ms,omitempty"`
}

// NewRunID builds a collision-safe record key: a sortable UTC timestamp
// plus a random suffix.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102T150405Z") + "-" + uuid.New().String()[:8]
}
