// Package scanner implements the deterministic pattern scan over commit
// diffs. Only added lines are inspected; every hit carries the rule that
// produced it and the file it points at.
package scanner

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/scanner/rules"
	"github.com/acarl005/stripansi"
	"github.com/rs/zerolog/log"
	"github.com/rxwycdh/rxhash"
	"github.com/wandb/parallel"
)

// DefaultHitTimeout bounds one full diff scan.
const DefaultHitTimeout = 60 * time.Second

// Options configures a DiffScanner.
type Options struct {
	Rules                  []rules.Rule
	MaxScanGoRoutines      int
	TruffleHog             bool
	TruffleHogVerification bool
	HitTimeout             time.Duration
}

// Finding is a scanner hit: the domain finding plus the log-only fields
// (masked matched value, diff line). Value is already masked, the raw
// secret never leaves the scan.
type Finding struct {
	gate.SecretFinding
	Value string
	Line  int
}

type detectionResult struct {
	findings []Finding
	err      error
}

// DiffScanner runs the configured rule set, and optionally the TruffleHog
// detectors, over a commit diff.
type DiffScanner struct {
	options Options
}

func NewScanner(opts Options) *DiffScanner {
	if opts.MaxScanGoRoutines < 1 {
		opts.MaxScanGoRoutines = 1
	}
	if opts.HitTimeout <= 0 {
		opts.HitTimeout = DefaultHitTimeout
	}
	return &DiffScanner{options: opts}
}

// Scan detects secrets in the added lines of diff. A run that exceeds the
// hit timeout returns an error, never blocks the gate.
func (s *DiffScanner) Scan(diff string) ([]Finding, error) {
	result := make(chan detectionResult, 1)
	go func() {
		result <- s.detect(diff)
	}()
	select {
	case <-time.After(s.options.HitTimeout):
		return nil, errors.New("diff scan timed out (" + s.options.HitTimeout.String() + ")")
	case result := <-result:
		return result.findings, result.err
	}
}

func (s *DiffScanner) detect(diff string) detectionResult {
	added := ExtractAddedLines(diff)
	if len(added) == 0 {
		log.Debug().Msg("No added lines in diff, nothing to scan")
		return detectionResult{findings: []Finding{}}
	}
	log.Debug().Int("count", len(added)).Msg("Scanning added lines")

	ctx := context.Background()
	group := parallel.Collect[[]Finding](parallel.Limited(ctx, s.options.MaxScanGoRoutines))

	for _, rule := range s.options.Rules {
		group.Go(func(ctx context.Context) ([]Finding, error) {
			findings := []Finding{}
			m, err := regexp.Compile(rule.Regex)
			if err != nil {
				log.Trace().Err(err).Str("id", rule.ID).Str("regex", rule.Regex).Msg("Failed compiling regex expression")
				return findings, nil
			}

			for _, line := range added {
				hits := m.FindAllString(line.Text, -1)

				for _, hit := range hits {
					findings = append(findings, Finding{
						SecretFinding: gate.SecretFinding{
							PatternID:   rule.ID,
							Description: rule.Description,
							FileHint:    line.FileHint,
							Confidence:  rule.Confidence,
						},
						Value: maskValue(cleanHitLine(hit)),
						Line:  line.Line,
					})
				}
			}

			return findings, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed waiting for parallel hit detection")
	}

	findings := slices.Concat(results...)

	if s.options.TruffleHog {
		findings = slices.Concat(findings, s.truffleHogPass(ctx, added))
	}

	return detectionResult{findings: deduplicateFindings(findings), err: nil}
}

// SecretFindings strips the log-only fields off scanner findings for the
// merge and the audit record.
func SecretFindings(findings []Finding) []gate.SecretFinding {
	stripped := make([]gate.SecretFinding, 0, len(findings))
	for _, finding := range findings {
		stripped = append(stripped, finding.SecretFinding)
	}
	return stripped
}

func deduplicateFindings(totalFindings []Finding) []Finding {
	seen := []string{}
	dedupedFindings := []Finding{}
	for _, finding := range totalFindings {
		hash, _ := rxhash.HashStruct(finding)
		if slices.Contains(seen, hash) {
			continue
		}
		seen = append(seen, hash)
		dedupedFindings = append(dedupedFindings, finding)
	}

	return dedupedFindings
}

func cleanHitLine(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return stripansi.Strip(text)
}

// maskValue hides all but a short prefix of a matched value. The prefix
// identifies the credential type, the rest stays out of CI logs and audit
// storage.
func maskValue(text string) string {
	if len(text) <= 8 {
		return "********"
	}
	masked := len(text) - 8
	if masked > 32 {
		masked = 32
	}
	return text[:8] + strings.Repeat("*", masked)
}
