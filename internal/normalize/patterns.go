package normalize

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

type patternRule struct {
	re    *regexp.Regexp
	value string
}

var providerRules, familyRules []patternRule

func init() {
	var doc struct {
		Providers []struct {
			Pattern  string `yaml:"pattern"`
			Provider string `yaml:"provider"`
		} `yaml:"providers"`
		Families []struct {
			Pattern string `yaml:"pattern"`
			Family  string `yaml:"family"`
		} `yaml:"families"`
	}
	if err := yaml.Unmarshal(patternsYAML, &doc); err != nil {
		panic(fmt.Sprintf("normalize: invalid patterns.yaml: %v", err))
	}
	for _, p := range doc.Providers {
		providerRules = append(providerRules, patternRule{regexp.MustCompile(p.Pattern), p.Provider})
	}
	for _, f := range doc.Families {
		familyRules = append(familyRules, patternRule{regexp.MustCompile(f.Pattern), f.Family})
	}
}

// Provider extracts the upstream provider from a model's id and name.
// Unmatched records map to "other".
func Provider(id, name string) string {
	return match(providerRules, id, name, "other")
}

// Family extracts the model family from a model's id and name.
// Unmatched records map to "unknown".
func Family(id, name string) string {
	return match(familyRules, id, name, "unknown")
}

func match(rules []patternRule, id, name, fallback string) string {
	haystack := strings.ToLower(id + " " + name)
	for _, r := range rules {
		if r.re.MatchString(haystack) {
			return r.value
		}
	}
	return fallback
}
