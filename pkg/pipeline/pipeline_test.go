package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/audit"
	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/scanner"
	"github.com/LucerneSecurity/commitgate/pkg/semantic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanner struct {
	findings []scanner.Finding
	err      error
	calls    int
}

func (s *stubScanner) Scan(diff string) ([]scanner.Finding, error) {
	s.calls++
	return s.findings, s.err
}

type stubAnalyzer struct {
	judgment gate.SemanticJudgment
	err      error
	calls    int
	lastIn   gate.AnalysisInput
}

func (s *stubAnalyzer) Analyze(_ context.Context, input gate.AnalysisInput) (gate.SemanticJudgment, error) {
	s.calls++
	s.lastIn = input
	if s.err != nil {
		return gate.SemanticJudgment{}, s.err
	}
	return s.judgment, nil
}

type recordingStore struct {
	mu      sync.Mutex
	err     error
	records []*audit.Record
}

func (s *recordingStore) Append(_ context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *recordingStore) last() *audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[len(s.records)-1]
}

// fixedClock advances by one step per Now call.
type fixedClock struct {
	now  time.Time
	step time.Duration
}

func (c *fixedClock) Now() time.Time {
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func highPatternFinding() scanner.Finding {
	return scanner.Finding{
		SecretFinding: gate.SecretFinding{
			PatternID:   "aws-access-key-id",
			Description: "AWS Access Key ID",
			FileHint:    "config/prod.env",
			Confidence:  gate.ConfidenceHigh,
		},
		Value: "AKIAIOSF************",
		Line:  3,
	}
}

var cleanInput = gate.AnalysisInput{
	CommitMessage: "feat: add login flow",
	CommitDiff:    "+nothing secret\n",
}

func compliant(string) gate.FormatResult {
	return gate.FormatResult{Compliant: true}
}

func violating(string) gate.FormatResult {
	return gate.FormatResult{Compliant: false, RuleViolated: "format"}
}

func TestRunShortCircuitsOnHighPatternHit(t *testing.T) {
	analyzer := &stubAnalyzer{}
	store := &recordingStore{}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{findings: []scanner.Finding{highPatternFinding()}},
		Validate:      compliant,
		Analyzer:      analyzer,
		AuditStore:    store,
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusFail, verdict.Status)
	assert.Equal(t, "Secret Detected: AWS Access Key ID found in `config/prod.env`.", verdict.Reason)
	assert.Equal(t, 0, analyzer.calls, "semantic stage must be skipped on a high confidence hit")

	require.Equal(t, 1, store.count())
	record := store.last()
	assert.True(t, record.SemanticSkipped)
	assert.False(t, record.SemanticAvailable)
	assert.Len(t, record.ScannerFindings, 1)
}

func TestRunSemanticCatchesResidualSecret(t *testing.T) {
	analyzer := &stubAnalyzer{
		judgment: gate.SemanticJudgment{
			SecretsFound: []gate.SecretFinding{
				{PatternID: "split-secret", Description: "Reassembled API key", FileHint: "deploy.sh", Confidence: gate.ConfidenceHigh},
			},
			Format: gate.FormatResult{Compliant: true},
		},
	}
	store := &recordingStore{}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      compliant,
		Analyzer:      analyzer,
		AuditStore:    store,
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusFail, verdict.Status)
	assert.Equal(t, "Secret Detected: Reassembled API key found in `deploy.sh`.", verdict.Reason)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, cleanInput, analyzer.lastIn)

	record := store.last()
	assert.False(t, record.SemanticSkipped)
	assert.True(t, record.SemanticAvailable)
	require.NotNil(t, record.Semantic)
	assert.Len(t, record.Semantic.SecretsFound, 1)
}

func TestRunFormatViolation(t *testing.T) {
	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      violating,
		Analyzer:      &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: false, RuleViolated: "format"}}},
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusFail, verdict.Status)
	assert.Equal(t, "Commit message does not follow the required format.", verdict.Reason)
}

func TestRunFormatViolationNotEnforced(t *testing.T) {
	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      violating,
		Analyzer:      &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}},
		EnforceFormat: false,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusPass, verdict.Status)
	assert.Empty(t, verdict.ContributingFindings)
}

func TestRunDegradedSemanticStillPasses(t *testing.T) {
	analyzer := &stubAnalyzer{err: fmt.Errorf("%w: context deadline exceeded", semantic.ErrUnavailable)}
	store := &recordingStore{}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      compliant,
		Analyzer:      analyzer,
		AuditStore:    store,
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusPass, verdict.Status)
	assert.Equal(t, "All checks passed.", verdict.Reason)
	assert.Empty(t, verdict.ContributingFindings)

	require.Equal(t, 1, store.count())
	record := store.last()
	assert.False(t, record.SemanticSkipped)
	assert.False(t, record.SemanticAvailable)
	assert.Contains(t, record.SemanticFailure, "semantic analysis unavailable")
	assert.Nil(t, record.Semantic)
}

func TestRunDegradedSemanticNeverRelaxesFormat(t *testing.T) {
	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      violating,
		Analyzer:      &stubAnalyzer{err: semantic.ErrUnavailable},
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusFail, verdict.Status)
	assert.Equal(t, "Commit message does not follow the required format.", verdict.Reason)
}

func TestRunScannerFailureDegrades(t *testing.T) {
	analyzer := &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{err: errors.New("diff scan timed out (60s)")},
		Validate:      compliant,
		Analyzer:      analyzer,
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusPass, verdict.Status)
	assert.Equal(t, 1, analyzer.calls, "semantic stage still runs when the scan fails")
}

func TestRunAuditRecordShape(t *testing.T) {
	store := &recordingStore{}
	clock := &fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), step: 10 * time.Millisecond}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      compliant,
		Analyzer:      &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}},
		AuditStore:    store,
		Clock:         clock,
		EnforceFormat: true,
	})

	p.Run(context.Background(), cleanInput)

	require.Equal(t, 1, store.count())
	record := store.last()

	assert.Contains(t, record.RunID, "20240601T120000Z-")
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), record.StartedAt)
	assert.Equal(t, cleanInput, record.Input)
	assert.Equal(t, gate.StatusPass, record.Verdict.Status)
	assert.Greater(t, record.DurationMS, int64(0))

	assert.Equal(t, int64(10), record.StageDurationsMS["scanner"])
	assert.Equal(t, int64(10), record.StageDurationsMS["semantic"])
	assert.Equal(t, int64(10), record.StageDurationsMS["merge"])
}

func TestRunAuditAppendedExactlyOncePerRun(t *testing.T) {
	store := &recordingStore{}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{findings: []scanner.Finding{highPatternFinding()}},
		Validate:      compliant,
		Analyzer:      &stubAnalyzer{},
		AuditStore:    store,
		EnforceFormat: true,
	})

	p.Run(context.Background(), cleanInput)
	require.Equal(t, 1, store.count())

	p.Run(context.Background(), cleanInput)
	require.Equal(t, 2, store.count())

	first, second := store.records[0].RunID, store.records[1].RunID
	assert.NotEqual(t, first, second, "every run gets its own record key")
}

func TestRunAuditFailureDoesNotChangeVerdict(t *testing.T) {
	store := &recordingStore{err: errors.New("bucket unreachable")}

	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      compliant,
		Analyzer:      &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}},
		AuditStore:    store,
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusPass, verdict.Status)
}

func TestRunWithoutSinks(t *testing.T) {
	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Validate:      compliant,
		Analyzer:      &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}},
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), cleanInput)

	assert.Equal(t, gate.StatusPass, verdict.Status)
	assert.Equal(t, "All checks passed.", verdict.Reason)
}

func TestRunDefaultValidatorIsConventionalCommits(t *testing.T) {
	p := NewPipeline(Options{
		Scanner:       &stubScanner{},
		Analyzer:      &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: false, RuleViolated: "format"}}},
		EnforceFormat: true,
	})

	verdict := p.Run(context.Background(), gate.AnalysisInput{
		CommitMessage: "no conventional header here",
	})

	assert.Equal(t, gate.StatusFail, verdict.Status)
	assert.Equal(t, "Commit message does not follow the required format.", verdict.Reason)
}

func TestRunVerdictInvariants(t *testing.T) {
	tests := []struct {
		name     string
		scanner  *stubScanner
		analyzer *stubAnalyzer
		validate func(string) gate.FormatResult
	}{
		{
			name:     "clean run",
			scanner:  &stubScanner{},
			analyzer: &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}},
			validate: compliant,
		},
		{
			name:     "pattern hit",
			scanner:  &stubScanner{findings: []scanner.Finding{highPatternFinding()}},
			analyzer: &stubAnalyzer{},
			validate: compliant,
		},
		{
			name:     "format violation",
			scanner:  &stubScanner{},
			analyzer: &stubAnalyzer{judgment: gate.SemanticJudgment{Format: gate.FormatResult{Compliant: true}}},
			validate: violating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(Options{
				Scanner:       tt.scanner,
				Validate:      tt.validate,
				Analyzer:      tt.analyzer,
				EnforceFormat: true,
			})

			verdict := p.Run(context.Background(), cleanInput)

			require.NotEmpty(t, verdict.Reason)
			if verdict.Status == gate.StatusPass {
				assert.Empty(t, verdict.ContributingFindings)
			}
			if verdict.Status == gate.StatusFail && len(verdict.ContributingFindings) == 0 {
				assert.Equal(t, "Commit message does not follow the required format.", verdict.Reason)
			}
		})
	}
}
