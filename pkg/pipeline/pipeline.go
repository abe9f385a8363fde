// Package pipeline sequences the gate stages for one commit: pattern
// scan, format check, optional semantic review, merge, then a single
// finalization that persists the audit record and pushes metrics.
package pipeline

import (
	"context"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/audit"
	"github.com/LucerneSecurity/commitgate/pkg/commitmsg"
	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/metrics"
	"github.com/LucerneSecurity/commitgate/pkg/report"
	"github.com/LucerneSecurity/commitgate/pkg/scanner"
	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"
)

const defaultIOTimeout = 5 * time.Second

// Clock abstracts time so stage timings are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Scanner is the deterministic pattern stage.
type Scanner interface {
	Scan(diff string) ([]scanner.Finding, error)
}

// Analyzer is the semantic stage. Errors mean "no opinion".
type Analyzer interface {
	Analyze(ctx context.Context, input gate.AnalysisInput) (gate.SemanticJudgment, error)
}

// Options wire the stages and sinks of one pipeline. Scanner and
// Analyzer are required; AuditStore and Metrics are optional sinks.
type Options struct {
	Scanner    Scanner
	Validate   func(message string) gate.FormatResult
	Analyzer   Analyzer
	AuditStore audit.Store
	Metrics    *metrics.Reporter
	Clock      Clock

	EnforceFormat bool
	IOTimeout     time.Duration
}

type Pipeline struct {
	options Options
}

func NewPipeline(options Options) *Pipeline {
	if options.Clock == nil {
		options.Clock = SystemClock{}
	}

	if options.Validate == nil {
		options.Validate = commitmsg.Validate
	}

	if options.IOTimeout <= 0 {
		options.IOTimeout = defaultIOTimeout
	}

	return &Pipeline{options: options}
}

// Run executes the gate for one commit and always returns a verdict.
// Stage failures degrade the run; only the merge decides the outcome.
func (p *Pipeline) Run(ctx context.Context, input gate.AnalysisInput) gate.Verdict {
	clock := p.options.Clock
	startedAt := clock.Now()
	runID := audit.NewRunID(startedAt)

	log.Debug().Str("runId", runID).Int("diffBytes", len(input.CommitDiff)).Msg("Gate run started")

	record := &audit.Record{
		RunID:            runID,
		StartedAt:        startedAt.UTC(),
		Input:            input,
		StageDurationsMS: map[string]int64{},
	}

	stageDurations := map[string]time.Duration{}

	scanStart := clock.Now()
	findings, err := p.options.Scanner.Scan(input.CommitDiff)
	stageDurations["scanner"] = clock.Now().Sub(scanStart)
	if err != nil {
		// The semantic stage may still catch what the scan could not.
		log.Warn().Err(err).Msg("Pattern scan failed, continuing without scanner findings")
		findings = nil
	}

	report.ReportFindings(findings, report.ReportOptions{RunID: runID})

	scannerFindings := scanner.SecretFindings(findings)
	record.ScannerFindings = scannerFindings

	formatResult := p.options.Validate(input.CommitMessage)
	record.Format = formatResult

	judgment := gate.SemanticJudgment{}
	semanticAvailable := false

	if hasHighConfidence(scannerFindings) {
		record.SemanticSkipped = true
		log.Debug().Msg("High confidence pattern hit, skipping semantic stage")
	} else {
		semanticStart := clock.Now()
		judgment, err = p.options.Analyzer.Analyze(ctx, input)
		stageDurations["semantic"] = clock.Now().Sub(semanticStart)

		if err != nil {
			record.SemanticFailure = err.Error()
			log.Warn().Err(err).Msg("Semantic stage unavailable, continuing degraded")
			judgment = gate.SemanticJudgment{}
		} else {
			semanticAvailable = true
			record.Semantic = &judgment
			report.ReportSemanticFindings(judgment.SecretsFound, report.ReportOptions{RunID: runID})
		}
	}
	record.SemanticAvailable = semanticAvailable

	mergeStart := clock.Now()
	verdict := gate.Merge(gate.MergeInput{
		ScannerFindings:   scannerFindings,
		Semantic:          judgment,
		SemanticAvailable: semanticAvailable,
		Format:            formatResult,
		EnforceFormat:     p.options.EnforceFormat,
	})
	stageDurations["merge"] = clock.Now().Sub(mergeStart)

	finishedAt := clock.Now()
	record.Verdict = verdict
	record.DurationMS = finishedAt.Sub(startedAt).Milliseconds()
	for stage, duration := range stageDurations {
		record.StageDurationsMS[stage] = duration.Milliseconds()
	}

	p.finalize(record, metrics.RunMetrics{
		Status:         verdict.Status,
		Duration:       finishedAt.Sub(startedAt),
		StageDurations: stageDurations,
		FinishedAt:     finishedAt,
	})

	log.Debug().Str("runId", runID).Str("status", string(verdict.Status)).Int64("durationMs", record.DurationMS).Msg("Gate run finished")
	return verdict
}

func hasHighConfidence(findings []gate.SecretFinding) bool {
	for _, finding := range findings {
		if finding.Confidence == gate.ConfidenceHigh {
			return true
		}
	}

	return false
}

// finalize runs the audit append and the metrics push concurrently,
// once per run, bounded by the IO timeout. Sink failures are logged and
// swallowed; the verdict is already fixed when finalize starts.
func (p *Pipeline) finalize(record *audit.Record, run metrics.RunMetrics) {
	ctx, cancel := context.WithTimeout(context.Background(), p.options.IOTimeout)
	defer cancel()

	group := parallel.Limited(ctx, 2)

	if p.options.AuditStore != nil {
		group.Go(func(ctx context.Context) {
			if err := p.options.AuditStore.Append(ctx, record); err != nil {
				log.Warn().Err(err).Str("runId", record.RunID).Msg("Failed appending audit record")
			}
		})
	} else {
		log.Debug().Msg("No audit sink configured, skipping audit record")
	}

	if p.options.Metrics.Enabled() {
		group.Go(func(ctx context.Context) {
			if err := p.options.Metrics.Report(ctx, run); err != nil {
				log.Warn().Err(err).Msg("Failed pushing run metrics")
			}
		})
	}

	group.Wait()
}
