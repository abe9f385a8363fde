// Package commitmsg validates commit messages against the gate's
// conventional commit grammar.
package commitmsg

import (
	"regexp"
	"strings"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
)

// RuleFormat is the rule name reported for any grammar violation.
const RuleFormat = "format"

// Types lists the change types a commit header may declare.
var Types = []string{"feat", "fix", "docs", "chore", "refactor", "test", "ci", "build", "perf"}

// Header grammar: type, optional non-empty lowercase scope, optional
// breaking-change marker, then ": " and a non-empty description.
var headerPattern = regexp.MustCompile(`^(` + strings.Join(Types, "|") + `)(\([a-z0-9/._-]+\))?!?: \S.*$`)

// Validate checks the first line of message. The body below the header
// is free-form and never inspected. Anything that does not match the
// grammar, including an empty message, is a violation.
func Validate(message string) gate.FormatResult {
	header, _, _ := strings.Cut(message, "\n")
	header = strings.TrimRight(header, "\r")

	if headerPattern.MatchString(header) {
		return gate.FormatResult{Compliant: true}
	}

	return gate.FormatResult{Compliant: false, RuleViolated: RuleFormat}
}
