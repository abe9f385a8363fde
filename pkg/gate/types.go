// Package gate defines the commit gate's domain types and the decision
// merge policy. All types are immutable value types; stages consume them
// and return new values.
package gate

import "strings"

// Status is the binary outcome of a gate run.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Confidence rates how certain a secret finding is. Only HIGH findings can
// fail a run on their own; MEDIUM findings corroborate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// ParseConfidence normalizes external confidence strings (rule files, the
// semantic service) into the two supported levels. Unknown values map to
// MEDIUM so that a typo never silently escalates a finding.
func ParseConfidence(s string) Confidence {
	if strings.EqualFold(strings.TrimSpace(s), string(ConfidenceHigh)) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

// AnalysisInput is the commit under judgment. CommitMessage is required,
// CommitDiff may be empty (e.g. merge commits).
type AnalysisInput struct {
	CommitMessage string `json:"commit_message"`
	CommitDiff    string `json:"commit_diff"`
}

// SecretFinding is one detected secret, produced by the pattern scanner or
// the semantic stage. FileHint is best-effort from diff headers and may be
// empty.
type SecretFinding struct {
	PatternID   string     `json:"pattern_id"`
	Description string     `json:"description"`
	FileHint    string     `json:"file_hint,omitempty"`
	Confidence  Confidence `json:"confidence"`
}

// FormatResult is the commit message format check outcome. RuleViolated is
// set only when Compliant is false.
type FormatResult struct {
	Compliant    bool   `json:"compliant"`
	RuleViolated string `json:"rule_violated,omitempty"`
}

// SemanticJudgment is the structured opinion of the semantic stage. It is
// transient: it feeds the merge and the audit record, nothing else.
type SemanticJudgment struct {
	SecretsFound []SecretFinding `json:"secrets_found"`
	Format       FormatResult    `json:"format"`
	RawRationale string          `json:"rationale,omitempty"`
}

// Verdict is the terminal result of a run. A FAIL always carries the
// findings or the format violation that caused it; a PASS never carries
// findings.
type Verdict struct {
	Status               Status          `json:"status"`
	Reason               string          `json:"reason"`
	ContributingFindings []SecretFinding `json:"contributing_findings,omitempty"`
}

// InputError marks input the gate cannot judge: malformed JSON, a missing
// commit message, an oversized diff. It maps to the internal-failure exit
// code, never to a policy FAIL.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}
