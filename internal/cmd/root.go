// Package cmd assembles the commitgate command tree.
package cmd

import (
	"github.com/LucerneSecurity/commitgate/internal/cmd/check"
	"github.com/LucerneSecurity/commitgate/internal/cmd/common"
	"github.com/LucerneSecurity/commitgate/internal/cmd/rules"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "commitgate [command]",
		Short: "Judge commits before they reach the default branch",
		Long: `Commitgate is a CI commit gate. A deterministic secret pattern scan and
a commit message format check, backed by an optional LLM semantic
review, produce a single PASS or FAIL verdict per commit.`,
		Version: common.Version,
	}

	rootCmd.AddCommand(check.NewCheckCmd())
	rootCmd.AddCommand(rules.NewRulesCmd())

	common.SetupPersistentPreRun(rootCmd)
	common.AddCommonFlags(rootCmd)

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	return rootCmd
}
