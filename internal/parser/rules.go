package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeatureRule maps a title pattern to a feature string. Rules are
// evaluated in order; each contributes at most one feature.
type FeatureRule struct {
	Pattern *regexp.Regexp
	// Feature renders the feature string from the regex match.
	Feature func(match []string) string
}

// Rules bundles the heuristic tables used by normalization: the known
// chassis models (ordered, most specific first) and the title feature
// rules.
type Rules struct {
	Models   []string
	Features []FeatureRule
}

var slideWords = map[string]int{
	"single": 1,
	"double": 2,
	"triple": 3,
	"quad":   4,
}

// DefaultRules returns the built-in tables. The model list carries the
// two dominant chassis families first.
func DefaultRules() Rules {
	return Rules{
		Models: []string{"H3-45", "XLII", "X3-45", "H3-41", "H3-40", "XL-45", "XL-40"},
		Features: []FeatureRule{
			{
				Pattern: regexp.MustCompile(`(?i)(single|double|triple|quad)\s+slide`),
				Feature: func(match []string) string {
					return fmt.Sprintf("%d Slides", slideWords[strings.ToLower(match[1])])
				},
			},
			{
				Pattern: regexp.MustCompile(`(?i)bunk`),
				Feature: literal("Bunk Coach"),
			},
			{
				Pattern: regexp.MustCompile(`(?i)hc acc|wheelchair`),
				Feature: literal("Wheelchair Accessible"),
			},
		},
	}
}

func literal(s string) func([]string) string {
	return func([]string) string { return s }
}

// rulesFile is the YAML shape for externally supplied rules.
type rulesFile struct {
	Models   []string `yaml:"models"`
	Features []struct {
		Pattern string `yaml:"pattern"`
		Feature string `yaml:"feature"`
	} `yaml:"features"`
}

// LoadRules reads a YAML rules file and appends its entries to the
// built-in tables. File-supplied feature rules are literal pattern to
// feature mappings; the built-in slide quantity rule always stays first.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}

	rules.Models = append(rules.Models, rf.Models...)
	for _, f := range rf.Features {
		p, err := regexp.Compile(f.Pattern)
		if err != nil {
			return rules, fmt.Errorf("rule pattern %q: %w", f.Pattern, err)
		}
		rules.Features = append(rules.Features, FeatureRule{
			Pattern: p,
			Feature: literal(f.Feature),
		})
	}
	return rules, nil
}
