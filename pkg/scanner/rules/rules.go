// Package rules holds the named detection pattern set the gate scans
// commit diffs with. The built-in rules always apply; operators extend the
// set with local YAML files or a downloaded bundle in the
// secrets-patterns-db layout.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/httpclient"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"resty.dev/v3"
)

// Rule sources reported by the rules command.
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceRemote  = "remote"
)

// Rule is one named detection pattern. Regex is kept as source text;
// compilation happens in the scanner so a broken custom rule degrades to a
// skip instead of failing the gate.
type Rule struct {
	ID          string
	Description string
	Regex       string
	Confidence  gate.Confidence
	Source      string
}

// SecretsPatterns mirrors the secrets-patterns-db YAML layout.
type SecretsPatterns struct {
	Patterns []PatternElement `yaml:"patterns"`
}

type PatternElement struct {
	Pattern PatternPattern `yaml:"pattern"`
}

type PatternPattern struct {
	Name       string `yaml:"name"`
	Regex      string `yaml:"regex"`
	Confidence string `yaml:"confidence"`
}

// Builtin returns the always-on rule set, ordered. The bare AWS token and
// high entropy rules stay at MEDIUM: they corroborate but never fail a run
// on their own.
func Builtin() []Rule {
	return []Rule{
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			Regex:       `AKIA[0-9A-Z]{16}`,
			Confidence:  gate.ConfidenceHigh,
			Source:      SourceBuiltin,
		},
		{
			ID:          "live-secret-key",
			Description: "Live payment secret key",
			Regex:       `sk[-_]live[-_][0-9a-zA-Z]{16,}`,
			Confidence:  gate.ConfidenceHigh,
			Source:      SourceBuiltin,
		},
		{
			ID:          "private-key-block",
			Description: "Private key material",
			Regex:       `-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`,
			Confidence:  gate.ConfidenceHigh,
			Source:      SourceBuiltin,
		},
		{
			ID:          "generic-aws-token",
			Description: "AWS style access token",
			Regex:       `(^|[^A-Z0-9])[A-Z0-9]{20}($|[^A-Z0-9])`,
			Confidence:  gate.ConfidenceMedium,
			Source:      SourceBuiltin,
		},
		{
			ID:          "high-entropy-string",
			Description: "High entropy quoted string",
			Regex:       `['"][a-zA-Z0-9]{30,}['"]`,
			Confidence:  gate.ConfidenceMedium,
			Source:      SourceBuiltin,
		},
	}
}

// LoadFile parses additional rules from a local secrets-patterns-db YAML
// file.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed reading rules file: %w", err)
	}

	loaded, err := parsePatterns(data, SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed parsing rules file %s: %w", path, err)
	}

	return loaded, nil
}

// Download fetches a rules bundle over HTTP(S) and parses it. Used for
// org-wide rule distribution from an internal endpoint.
func Download(rulesURL string) ([]Rule, error) {
	client := resty.New().
		SetTransport(httpclient.GateTransport(nil)).
		SetTimeout(30 * time.Second).
		SetRetryCount(2)
	client.AddRetryHooks(
		func(res *resty.Response, err error) {
			if res != nil && res.StatusCode() == 429 {
				log.Info().Int("status", res.StatusCode()).Msg("Retrying rules download, we are rate limited")
			} else {
				log.Info().Msg("Retrying rules download")
			}
		},
	)
	res, err := client.R().Get(rulesURL)
	if err != nil {
		return nil, fmt.Errorf("failed downloading rules bundle: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("failed downloading rules bundle: status %d", res.StatusCode())
	}

	loaded, err := parsePatterns(res.Bytes(), SourceRemote)
	if err != nil {
		return nil, fmt.Errorf("failed parsing downloaded rules bundle: %w", err)
	}

	return loaded, nil
}

// Load assembles the effective ordered rule set: builtins first, then the
// local file, then the remote bundle. Both extensions are optional.
func Load(rulesPath string, rulesURL string) ([]Rule, error) {
	loaded := Builtin()

	if rulesPath != "" {
		fileRules, err := LoadFile(rulesPath)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("count", len(fileRules)).Str("path", rulesPath).Msg("Loaded rules file")
		loaded = slices.Concat(loaded, fileRules)
	}

	if rulesURL != "" {
		remoteRules, err := Download(rulesURL)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("count", len(remoteRules)).Str("url", rulesURL).Msg("Loaded remote rules bundle")
		loaded = slices.Concat(loaded, remoteRules)
	}

	log.Debug().Int("count", len(loaded)).Msg("Loaded rules")
	return loaded, nil
}

func parsePatterns(data []byte, source string) ([]Rule, error) {
	patterns := SecretsPatterns{}
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, err
	}

	parsed := []Rule{}
	for _, pattern := range patterns.Patterns {
		if pattern.Pattern.Name == "" || pattern.Pattern.Regex == "" {
			log.Debug().Str("name", pattern.Pattern.Name).Msg("Skipping rule without name or regex")
			continue
		}

		parsed = append(parsed, Rule{
			ID:          slugify(pattern.Pattern.Name),
			Description: pattern.Pattern.Name,
			Regex:       pattern.Pattern.Regex,
			Confidence:  gate.ParseConfidence(pattern.Pattern.Confidence),
			Source:      source,
		})
	}

	return parsed, nil
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
