package semantic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/perimeterx/marshmallow"
	"github.com/tidwall/gjson"
)

// fallbackDescription stands in when the model reports a secret without
// describing it. It ends up verbatim in the FAIL reason.
const fallbackDescription = "Potential hardcoded credential"

type secretReply struct {
	PatternID   string `json:"pattern_id"`
	Description string `json:"description"`
	FileHint    string `json:"file_hint"`
	Confidence  string `json:"confidence"`
}

type formatReply struct {
	Compliant    bool   `json:"compliant"`
	RuleViolated string `json:"rule_violated"`
}

type judgmentReply struct {
	Secrets   []secretReply `json:"secrets"`
	Format    formatReply   `json:"format"`
	Rationale string        `json:"rationale"`
}

// ParseJudgment turns a raw model reply into a judgment. It tolerates
// markdown fences around the object and unknown fields inside it, but
// never fabricates: an unusable reply is an error, not an empty judgment.
func ParseJudgment(raw string) (gate.SemanticJudgment, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return gate.SemanticJudgment{}, errors.New("reply contains no JSON object")
	}

	// A reply without a format judgment is no judgment at all.
	if !gjson.Get(doc, "format").IsObject() {
		return gate.SemanticJudgment{}, errors.New("reply is missing the format judgment")
	}

	reply := judgmentReply{}
	_, err := marshmallow.Unmarshal([]byte(doc), &reply)
	if err != nil {
		return gate.SemanticJudgment{}, fmt.Errorf("unmarshalling reply: %w", err)
	}

	judgment := gate.SemanticJudgment{
		Format:       gate.FormatResult{Compliant: reply.Format.Compliant, RuleViolated: reply.Format.RuleViolated},
		RawRationale: strings.TrimSpace(reply.Rationale),
	}

	if !judgment.Format.Compliant && judgment.Format.RuleViolated == "" {
		judgment.Format.RuleViolated = "format"
	}

	for _, secret := range reply.Secrets {
		finding := gate.SecretFinding{
			PatternID:   strings.TrimSpace(secret.PatternID),
			Description: strings.TrimSpace(secret.Description),
			FileHint:    strings.TrimSpace(secret.FileHint),
			Confidence:  gate.ParseConfidence(secret.Confidence),
		}

		if finding.PatternID == "" {
			finding.PatternID = "semantic"
		}

		if finding.Description == "" {
			finding.Description = fallbackDescription
		}

		judgment.SecretsFound = append(judgment.SecretsFound, finding)
	}

	return judgment, nil
}

// extractJSON locates the judgment object inside raw. Handles the reply
// being the bare object, or the object wrapped in prose or a ```json
// fence.
func extractJSON(raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if strings.HasPrefix(candidate, "{") && gjson.Valid(candidate) {
		return candidate, true
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return "", false
	}

	candidate = candidate[start : end+1]
	if gjson.Valid(candidate) {
		return candidate, true
	}

	return "", false
}
