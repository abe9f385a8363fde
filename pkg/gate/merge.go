package gate

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/rxwycdh/rxhash"
)

// Reason strings emitted on the wire. CI annotations key off these, do not
// reword without a migration.
const (
	ReasonFormatViolation = "Commit message does not follow the required format."
	ReasonAllChecksPassed = "All checks passed."
)

// MergeInput carries every stage outcome into the merge. Semantic is only
// consulted when SemanticAvailable is true.
type MergeInput struct {
	ScannerFindings   []SecretFinding
	Semantic          SemanticJudgment
	SemanticAvailable bool
	Format            FormatResult
	EnforceFormat     bool
}

type mergeRule struct {
	name string
	eval func(in MergeInput) (Verdict, bool)
}

// Rule order is the precedence order: secrets outrank format violations,
// format violations outrank the default pass.
var mergeRules = []mergeRule{
	{name: "secret-detected", eval: secretDetected},
	{name: "format-violation", eval: formatViolation},
	{name: "default-pass", eval: defaultPass},
}

// Merge reduces the stage outcomes into a single Verdict, evaluating the
// precedence rules first-match.
func Merge(in MergeInput) Verdict {
	for _, rule := range mergeRules {
		verdict, ok := rule.eval(in)
		if !ok {
			continue
		}
		log.Debug().Str("rule", rule.name).Str("status", string(verdict.Status)).Msg("Merge rule matched")
		return verdict
	}

	// default-pass always matches
	return Verdict{Status: StatusPass, Reason: ReasonAllChecksPassed}
}

// secretDetected fails the run on the first HIGH confidence finding.
// Scanner findings come before semantic findings, so a deterministic local
// hit always wins the reason line. All findings, MEDIUM included, travel
// along as contributing findings.
func secretDetected(in MergeInput) (Verdict, bool) {
	findings := in.ScannerFindings
	if in.SemanticAvailable {
		findings = slices.Concat(findings, in.Semantic.SecretsFound)
	}
	findings = DeduplicateFindings(findings)

	for _, finding := range findings {
		if finding.Confidence != ConfidenceHigh {
			continue
		}
		return Verdict{
			Status:               StatusFail,
			Reason:               secretReason(finding),
			ContributingFindings: findings,
		}, true
	}

	return Verdict{}, false
}

// formatViolation fails the run when enforcement is on and either the local
// validator or an available semantic judgment flags the message. A missing
// semantic opinion never relaxes enforcement.
func formatViolation(in MergeInput) (Verdict, bool) {
	if !in.EnforceFormat {
		return Verdict{}, false
	}

	if !in.Format.Compliant || (in.SemanticAvailable && !in.Semantic.Format.Compliant) {
		return Verdict{Status: StatusFail, Reason: ReasonFormatViolation}, true
	}

	return Verdict{}, false
}

func defaultPass(in MergeInput) (Verdict, bool) {
	return Verdict{Status: StatusPass, Reason: ReasonAllChecksPassed}, true
}

func secretReason(finding SecretFinding) string {
	if finding.FileHint == "" {
		return fmt.Sprintf("Secret Detected: %s found in commit diff.", finding.Description)
	}
	return fmt.Sprintf("Secret Detected: %s found in `%s`.", finding.Description, finding.FileHint)
}

// DeduplicateFindings drops repeated findings while preserving first-seen
// order.
func DeduplicateFindings(findings []SecretFinding) []SecretFinding {
	seen := []string{}
	deduped := []SecretFinding{}
	for _, finding := range findings {
		hash, _ := rxhash.HashStruct(finding)
		if slices.Contains(seen, hash) {
			continue
		}
		seen = append(seen, hash)
		deduped = append(deduped, finding)
	}

	return deduped
}
