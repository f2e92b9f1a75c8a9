// internal/goldenrecord/language.go
package goldenrecord

import (
	"strings"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/models"
)

// ==========================================================================
// LANGUAGE RESOLUTION
// ==========================================================================

// Fallback tiers, reported with every resolved label.
const (
	TierExact    = 1 // requested language + country
	TierLanguage = 2 // requested language, any region
	TierDefault  = 3 // configured default language
	TierFirst    = 4 // first label in document order
)

// LanguageResolver picks one label per field for a requested locale.
type LanguageResolver struct {
	DefaultLanguage string
}

func NewLanguageResolver(defaultLanguage string) *LanguageResolver {
	if defaultLanguage == "" {
		defaultLanguage = "en-us"
	}
	return &LanguageResolver{DefaultLanguage: strings.ToLower(defaultLanguage)}
}

// Resolve walks the tiers in order and returns the first hit plus its tier.
// Any tier past the first records a LANGUAGE_FALLBACK diagnostic. A field
// with no labels at all is fatal.
func (lr *LanguageResolver) Resolve(r *models.FieldRecord, language, country string, diags *errors.Collector) (string, int, error) {
	if len(r.Labels) == 0 {
		return "", 0, errors.NewNoLabelAvailableError(r.Identifier, r.PathString())
	}

	language = strings.ToLower(language)
	country = strings.ToLower(country)

	label, tier := lr.lookup(r, language, country)
	if tier > TierExact {
		diags.AddWithMetadata(errors.DiagLanguageFallback, "language", r.PathString(),
			"label for "+r.Identifier+" fell back",
			map[string]interface{}{
				"requestedLanguage": language,
				"requestedCountry":  country,
				"tier":              tier,
			})
	}
	return label, tier, nil
}

func (lr *LanguageResolver) lookup(r *models.FieldRecord, language, country string) (string, int) {
	if language != "" && country != "" {
		if v, ok := r.Label(language + "-" + country); ok {
			return v, TierExact
		}
	}
	if language != "" {
		if v, ok := matchLanguage(r, language); ok {
			return v, TierLanguage
		}
	}
	if v, ok := r.Label(lr.DefaultLanguage); ok {
		return v, TierDefault
	}
	if base, _, found := strings.Cut(lr.DefaultLanguage, "-"); found {
		if v, ok := matchLanguage(r, base); ok {
			return v, TierDefault
		}
	}
	// Untagged labels count as the default language slot.
	if v, ok := r.Label(""); ok {
		return v, TierDefault
	}
	return r.Labels[0].Value, TierFirst
}

// matchLanguage accepts an exact language tag or any regional variant of it,
// first in document order.
func matchLanguage(r *models.FieldRecord, language string) (string, bool) {
	if v, ok := r.Label(language); ok {
		return v, true
	}
	for _, l := range r.Labels {
		if strings.HasPrefix(l.Language, language+"-") {
			return l.Value, true
		}
	}
	return "", false
}
