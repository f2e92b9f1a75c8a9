// internal/goldenrecord/categorizer.go
package goldenrecord

import (
	"regexp"

	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/pkg/registry"
)

// ==========================================================================
// CATEGORIZER
// ==========================================================================

// Categorizer assigns registry-defined categories. Rules compile once; the
// first matching rule wins, no match means uncategorized, never an error.
type Categorizer struct {
	rules []compiledRule
}

type compiledRule struct {
	id          models.Category
	identifiers []*regexp.Regexp
	paths       []*regexp.Regexp
}

// NewCategorizer compiles the registry's category rules. Patterns that fail
// to compile are skipped; the registry schema keeps them strings, not
// guaranteed regexes.
func NewCategorizer(reg *registry.FieldRegistry) *Categorizer {
	c := &Categorizer{}
	for _, rule := range reg.Categories {
		cr := compiledRule{id: models.Category(rule.ID)}
		for _, p := range rule.IdentifierPatterns {
			if re, err := regexp.Compile(p); err == nil {
				cr.identifiers = append(cr.identifiers, re)
			}
		}
		for _, p := range rule.PathPatterns {
			if re, err := regexp.Compile(p); err == nil {
				cr.paths = append(cr.paths, re)
			}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Categorize matches the extracted identifier and path string against the
// rules in registry order.
func (c *Categorizer) Categorize(identifier, path string) models.Category {
	for _, rule := range c.rules {
		for _, re := range rule.identifiers {
			if re.MatchString(identifier) {
				return rule.id
			}
		}
		for _, re := range rule.paths {
			if re.MatchString(path) {
				return rule.id
			}
		}
	}
	return models.CategoryUncategorized
}
