package semantic

import (
	"fmt"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
)

// systemPrompt pins the reply to one JSON object so that ParseJudgment
// stays deterministic across models.
const systemPrompt = `You are a commit gate reviewing a single commit before it enters a shared repository. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase confidence values: high, medium.
- secrets lists credential material ADDED by the diff. Look beyond obvious key formats: secrets split across lines, base64 or hex encoded blobs, and context-dependent pairs such as an internal hostname next to a password all count.
- Use high confidence only for usable credential material. Use medium for suspicious but inconclusive content. Never report content that only appears on removed lines.
- file_hint is the path of the file the secret was added to, or an empty string when the diff gives no path.
- format judges the first line of the commit message against: type(scope)!: description, with type one of feat, fix, docs, chore, refactor, test, ci, build, perf; the scope is optional lowercase [a-z0-9/._-]; the "!" is optional. When non-compliant, set rule_violated to "format".

Schema (example with empty values):
{
  "secrets": [
    {
      "pattern_id": "<string>",
      "description": "<string>",
      "file_hint": "<string>",
      "confidence": "<high|medium>"
    }
  ],
  "format": {"compliant": true, "rule_violated": "<string>"},
  "rationale": "<string>"
}`

// UserPrompt wraps the commit in delimited blocks. The delimiters keep
// commit content from being read as gate instructions.
func UserPrompt(input gate.AnalysisInput) string {
	return fmt.Sprintf(`Review this commit and respond with the JSON per schema.

COMMIT MESSAGE:
<<<MESSAGE
%s
MESSAGE

UNIFIED DIFF:
<<<DIFF
%s
DIFF`, input.CommitMessage, input.CommitDiff)
}
