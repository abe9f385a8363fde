// Package rules implements the operator command that prints the
// effective ordered pattern set.
package rules

import (
	"fmt"
	"strings"

	"github.com/LucerneSecurity/commitgate/pkg/format"
	pkgrules "github.com/LucerneSecurity/commitgate/pkg/scanner/rules"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type RulesOptions struct {
	RulesPath string
	RulesURL  string
	Yaml      bool
}

var options = RulesOptions{}

func NewRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective ordered pattern set",
		Long: `Print the detection rules the gate would scan with, in evaluation
order: builtins first, then the local rules file, then the remote
bundle. With --yaml the output is a rules document in the same layout
the --rules flag accepts.`,
		Example: `
# List builtins plus a local extension file
commitgate rules --rules ./team-rules.yml

# Export the effective set for review
commitgate rules --rules-url https://security.internal/rules.yml --yaml > effective.yml
		`,
		Run: List,
	}

	rulesCmd.Flags().StringVar(&options.RulesPath, "rules", "", "Additional rules YAML file (secrets-patterns-db layout)")
	rulesCmd.Flags().StringVar(&options.RulesURL, "rules-url", "", "Additional rules bundle URL, fetched over HTTP(S)")
	rulesCmd.Flags().BoolVar(&options.Yaml, "yaml", false, "Print the set as a rules YAML document instead of a listing")

	return rulesCmd
}

func List(cmd *cobra.Command, args []string) {
	loaded, err := pkgrules.Load(options.RulesPath, options.RulesURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed loading rules")
	}

	if options.Yaml {
		document, err := RenderYAML(loaded)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed rendering rules document")
		}
		fmt.Print(document)
		return
	}

	for _, rule := range loaded {
		log.Info().Str("id", rule.ID).Str("confidence", string(rule.Confidence)).Str("source", rule.Source).Str("description", rule.Description).Msg("rule")
	}
	log.Info().Int("count", len(loaded)).Msg("Effective rules")
}

// RenderYAML serializes rules into the secrets-patterns-db layout, so an
// export is itself a valid --rules file. Rule IDs are re-derived from the
// names on load.
func RenderYAML(loaded []pkgrules.Rule) (string, error) {
	document := pkgrules.SecretsPatterns{}
	for _, rule := range loaded {
		document.Patterns = append(document.Patterns, pkgrules.PatternElement{
			Pattern: pkgrules.PatternPattern{
				Name:       rule.Description,
				Regex:      rule.Regex,
				Confidence: strings.ToLower(string(rule.Confidence)),
			},
		})
	}

	data, err := yaml.Marshal(document)
	if err != nil {
		return "", err
	}

	return format.PrettyPrintYAML(string(data))
}
