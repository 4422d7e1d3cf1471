package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/verdict/internal/cli"
	"github.com/gyaneshwarpardhi/verdict/internal/condition"
)

var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Parse an expression and show its canonical form",
	Long: `Parse an expression, reporting syntax errors with their position, or
printing the canonical form, the referenced fields and the syntax tree.

Examples:
  rulectl parse "age >= 18 and (country == 'US' or vip == true)"
  rulectl parse "score > 50" --format yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		expr := strings.Join(args, " ")
		node, err := condition.Parse(expr)
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		return cli.PrintParsed(cmd.OutOrStdout(), cli.Describe(expr, node), f)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
