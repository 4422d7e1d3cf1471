package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/verdict/internal/rule"
)

// ReadRules decodes a YAML or JSON document holding a list of rules. Every
// rule is validated and ids must be unique; all problems are reported
// together.
func ReadRules(r io.Reader) ([]*rule.Rule, error) {
	var specs []rule.Spec
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&specs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	var (
		rules []*rule.Rule
		errs  []string
		seen  = make(map[string]int)
	)
	for i, s := range specs {
		built, err := rule.New(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("rules[%d] (%s): %v", i, s.Name, err))
			continue
		}
		if s.ID != "" {
			if prev, ok := seen[s.ID]; ok {
				errs = append(errs, fmt.Sprintf("duplicate id %q (rules[%d] and rules[%d])", s.ID, prev, i))
				continue
			}
			seen[s.ID] = i
		}
		rules = append(rules, built)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: rule document errors:\n  - %s", rule.ErrInvalidRule, strings.Join(errs, "\n  - "))
	}
	return rules, nil
}

// ReadRulesFile is ReadRules on the named file.
func ReadRulesFile(path string) ([]*rule.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	rules, err := ReadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// WriteRulesYAML encodes rules as a YAML list.
func WriteRulesYAML(w io.Writer, rules []*rule.Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(specs(rules)); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}

// WriteRulesJSON encodes rules as an indented JSON array.
func WriteRulesJSON(w io.Writer, rules []*rule.Rule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(specs(rules)); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return nil
}

func specs(rules []*rule.Rule) []rule.Spec {
	out := make([]rule.Spec, len(rules))
	for i, r := range rules {
		out[i] = r.Spec()
	}
	return out
}
