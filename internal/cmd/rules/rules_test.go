package rules

import (
	"os"
	"path/filepath"
	"testing"

	pkgrules "github.com/LucerneSecurity/commitgate/pkg/scanner/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRulesCmd(t *testing.T) {
	cmd := NewRulesCmd()

	assert.NotNil(t, cmd)
	assert.Equal(t, "rules", cmd.Use)
	assert.Contains(t, cmd.Short, "pattern set")

	for _, name := range []string{"rules", "rules-url", "yaml"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRenderYAMLLayout(t *testing.T) {
	document, err := RenderYAML(pkgrules.Builtin())

	require.NoError(t, err)
	assert.Contains(t, document, "patterns:")
	assert.Contains(t, document, "name: AWS Access Key ID")
	assert.Contains(t, document, "confidence: high")
	assert.Contains(t, document, "confidence: medium")
}

func TestRenderYAMLRoundTrip(t *testing.T) {
	original := pkgrules.Builtin()
	document, err := RenderYAML(original)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0600))

	reloaded, err := pkgrules.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, reloaded, len(original))

	for i, rule := range original {
		assert.Equal(t, rule.Description, reloaded[i].Description)
		assert.Equal(t, rule.Regex, reloaded[i].Regex)
		assert.Equal(t, rule.Confidence, reloaded[i].Confidence)
		assert.Equal(t, pkgrules.SourceFile, reloaded[i].Source)
	}
}
