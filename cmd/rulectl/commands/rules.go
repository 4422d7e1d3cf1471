package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/verdict/internal/cli"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

var (
	importReplace bool
	exportOutput  string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rules file",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		_, svc, err := openRules()
		if err != nil {
			return err
		}
		rules, err := svc.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		if quiet {
			return nil
		}
		if len(rules) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rules found")
			return nil
		}
		return cli.PrintRules(cmd.OutOrStdout(), rules, f)
	},
}

var rulesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		_, svc, err := openRules()
		if err != nil {
			return err
		}
		r, err := svc.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		return cli.PrintRule(cmd.OutOrStdout(), r, f)
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <document>",
	Short: "Import rules from a YAML or JSON document",
	Long: `Import rules from a YAML or JSON document into the rules file. Every rule
is validated first; nothing is written if any rule is invalid.

Examples:
  rulectl rules import seed.yaml
  rulectl rules import backup.json --replace`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := store.ReadRulesFile(args[0])
		if err != nil {
			return err
		}
		_, svc, err := openRules()
		if err != nil {
			return err
		}
		n, err := svc.Import(context.Background(), rules, importReplace)
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rules into %s\n", n, rulesFile)
		}
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rules to a YAML or JSON document",
	Long: `Export all rules as a document that "rules import" accepts. YAML is
written unless --format json is given.

Examples:
  rulectl rules export --output rules.yaml
  rulectl rules export --format json > backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := openRules()
		if err != nil {
			return err
		}
		rules, err := svc.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}

		out := cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			file, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()
			out = file
		}

		if format == string(cli.FormatJSON) {
			return store.WriteRulesJSON(out, rules)
		}
		return store.WriteRulesYAML(out, rules)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesGetCmd, rulesImportCmd, rulesExportCmd)

	rulesImportCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace all existing rules")
	rulesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}
