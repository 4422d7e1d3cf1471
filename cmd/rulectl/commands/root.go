package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/verdict/internal/cli"
	"github.com/gyaneshwarpardhi/verdict/internal/config"
	"github.com/gyaneshwarpardhi/verdict/internal/logging"
	"github.com/gyaneshwarpardhi/verdict/internal/service"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

var (
	// Global flags
	rulesFile string
	format    string
	quiet     bool
	verbose   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulectl",
	Short: "Author, inspect and evaluate verdict rules",
	Long: `rulectl works directly on a verdict rules file.

It parses expressions, manages rules and evaluates payloads without a
running server.

Examples:
  rulectl parse "age >= 18 AND country in ['US', 'CA']"
  rulectl rules list --file data/rules.json
  rulectl rules import seed.yaml --replace
  rulectl eval payload.json --rule 5b0c6f0e-8a62-4a35-9b8f-3f2d8d7e6c01`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultFile := "data/rules.json"
	if cfg, err := config.Load(); err == nil {
		defaultFile = cfg.Store.Path
	}
	rootCmd.PersistentFlags().StringVar(&rulesFile, "file", defaultFile, "Path to the rules file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log every comparison to stderr")
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}

// openRules opens the rules file and a service over it.
func openRules() (*store.FileStore, *service.Rules, error) {
	fs, err := store.NewFileStore(rulesFile, logger())
	if err != nil {
		return nil, nil, err
	}
	return fs, service.NewRules(fs, logger()), nil
}

func logger() *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	l, _ := logging.New(os.Stderr, level, "text")
	return l
}
