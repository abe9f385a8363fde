package gate

import (
	"strings"

	"github.com/perimeterx/marshmallow"
)

// Decode parses the commit document supplied by the CI job. Unknown fields
// are tolerated so wrapper scripts can attach their own metadata, but
// commit_message and commit_diff must have the right types and the message
// must not be empty.
func Decode(data []byte) (AnalysisInput, error) {
	in := AnalysisInput{}
	if _, err := marshmallow.Unmarshal(data, &in); err != nil {
		return AnalysisInput{}, &InputError{Reason: "commit document is not valid JSON: " + err.Error()}
	}

	if strings.TrimSpace(in.CommitMessage) == "" {
		return AnalysisInput{}, &InputError{Reason: "commit_message must not be empty"}
	}

	return in, nil
}
