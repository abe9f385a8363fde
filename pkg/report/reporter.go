// Package report emits hit-level log events for findings. The events go
// to stderr like all logging; the verdict document on stdout stays the
// only machine-read output.
package report

import (
	"strings"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/logging"
	"github.com/LucerneSecurity/commitgate/pkg/scanner"
)

type ReportOptions struct {
	RunID  string
	Source logging.FindingSource
}

func ReportFindings(findings []scanner.Finding, opts ReportOptions) {
	for _, finding := range findings {
		ReportFinding(finding, opts)
	}
}

func ReportFinding(finding scanner.Finding, opts ReportOptions) {
	source := opts.Source
	if source == "" {
		source = logging.SourcePattern
		if strings.HasPrefix(finding.PatternID, "trufflehog-") {
			source = logging.SourceTruffleHog
		}
	}

	event := logging.Hit().
		Str("source", string(source)).
		Str("confidence", string(finding.Confidence)).
		Str("ruleName", finding.PatternID).
		Str("value", finding.Value)

	if finding.FileHint != "" {
		event = event.Str("file", finding.FileHint)
	}
	if finding.Line > 0 {
		event = event.Int("line", finding.Line)
	}
	if opts.RunID != "" {
		event = event.Str("runId", opts.RunID)
	}

	event.Msg("SECRET")
}

// ReportSemanticFindings logs model-reported findings, which carry a
// description instead of a matched excerpt.
func ReportSemanticFindings(findings []gate.SecretFinding, opts ReportOptions) {
	for _, finding := range findings {
		event := logging.Hit().
			Str("source", string(logging.SourceSemantic)).
			Str("confidence", string(finding.Confidence)).
			Str("ruleName", finding.PatternID).
			Str("description", finding.Description)

		if finding.FileHint != "" {
			event = event.Str("file", finding.FileHint)
		}
		if opts.RunID != "" {
			event = event.Str("runId", opts.RunID)
		}

		event.Msg("SECRET")
	}
}
