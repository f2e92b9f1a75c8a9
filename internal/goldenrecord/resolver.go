// internal/goldenrecord/resolver.go
package goldenrecord

import (
	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/models"
)

// ==========================================================================
// FIELD RESOLUTION
// ==========================================================================

// Resolver runs filtering, categorization, language resolution and key
// assignment over a processed record list, producing the immutable resolved
// set the generators consume.
type Resolver struct {
	categorizer *Categorizer
	languages   *LanguageResolver
}

func NewResolver(categorizer *Categorizer, languages *LanguageResolver) *Resolver {
	return &Resolver{categorizer: categorizer, languages: languages}
}

// Resolve returns one ResolvedField per input record, in input order.
// Excluded records are kept with Included=false so counts stay conserved.
// The first field with zero labels aborts with NO_LABEL_AVAILABLE.
func (r *Resolver) Resolve(records []*models.FieldRecord, opts models.RunOptions, diags *errors.Collector) ([]*models.ResolvedField, error) {
	categoryOf := func(rec *models.FieldRecord) models.Category {
		return r.categorizer.Categorize(ExtractIdentifier(rec.Identifier), rec.PathString())
	}

	filter := NewFilter(opts.Policies, opts.AllowCategories)
	partition := filter.Apply(records, categoryOf, diags)

	resolved := make([]*models.ResolvedField, 0, len(records))
	included := make(map[*models.FieldRecord]bool, len(partition.Included))
	for _, rec := range partition.Included {
		included[rec] = true
	}

	for _, rec := range records {
		rf := &models.ResolvedField{
			Record:     rec,
			Category:   categoryOf(rec),
			Identifier: ExtractIdentifier(rec.Identifier),
			Included:   included[rec],
		}
		if !rf.Included {
			rf.ExcludeReason = partition.Reasons[rec]
			resolved = append(resolved, rf)
			continue
		}
		label, tier, err := r.languages.Resolve(rec, opts.Language, opts.Country, diags)
		if err != nil {
			return nil, err
		}
		rf.Label = label
		rf.LanguageTier = tier
		resolved = append(resolved, rf)
	}

	// Key assignment covers included fields only; excluded ones never claim
	// a key away from a field that ships.
	var keyed []*models.ResolvedField
	for _, rf := range resolved {
		if rf.Included {
			keyed = append(keyed, rf)
		}
	}
	AssignKeys(keyed, diags)

	return resolved, nil
}

// Included filters a resolved set down to the shipping fields, in order.
func Included(resolved []*models.ResolvedField) []*models.ResolvedField {
	var out []*models.ResolvedField
	for _, rf := range resolved {
		if rf.Included {
			out = append(out, rf)
		}
	}
	return out
}
