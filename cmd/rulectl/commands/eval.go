package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/verdict/internal/cli"
	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/config"
	"github.com/gyaneshwarpardhi/verdict/internal/engine"
)

var evalRuleIDs []string

var evalCmd = &cobra.Command{
	Use:   "eval <payload>",
	Short: "Evaluate a payload file against rules",
	Long: `Evaluate a JSON or YAML payload against rules from the rules file. All
rules are used unless --rule is given. The exit status is non-zero when
the verdict is FAIL.

Examples:
  rulectl eval payload.json
  rulectl eval payload.yaml --rule 5b0c6f0e-8a62-4a35-9b8f-3f2d8d7e6c01 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		payload, err := readPayload(args[0])
		if err != nil {
			return err
		}
		fs, svc, err := openRules()
		if err != nil {
			return err
		}

		ctx := context.Background()
		ids := evalRuleIDs
		if len(ids) == 0 {
			rules, err := svc.List(ctx)
			if err != nil {
				return err
			}
			for _, r := range rules {
				ids = append(ids, r.ID())
			}
		}

		conf := config.EngineConf{Workers: 1, QueueDepth: 1, BatchMaxSize: 1, EvalTimeoutMs: 5000}
		eng := engine.New(ctx, fs, logger(), conf)
		defer eng.Shutdown()

		resp, err := eng.Evaluate(ctx, payload, ids)
		if err != nil {
			return err
		}
		if !quiet {
			if err := cli.PrintEvaluation(cmd.OutOrStdout(), resp, f); err != nil {
				return err
			}
		}
		if resp.Result != engine.Pass {
			return errFailed
		}
		return nil
	},
}

var errFailed = errors.New("verdict is FAIL")

// readPayload decodes a JSON or YAML object. YAML is a superset of JSON so
// one decoder serves both.
func readPayload(path string) (condition.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var payload condition.Payload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse payload %s: %w", path, err)
	}
	if payload == nil {
		payload = condition.Payload{}
	}
	return payload, nil
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringSliceVar(&evalRuleIDs, "rule", nil, "Rule id to evaluate (repeatable)")
}
