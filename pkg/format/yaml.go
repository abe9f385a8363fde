package format

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// PrettyPrintYAML reformats a YAML document with two-space indentation.
// Decoding into a yaml.Node keeps the document's key order, so a rules
// export round-trips in the order the rules apply.
func PrettyPrintYAML(yamlStr string) (string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlStr), &node); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
