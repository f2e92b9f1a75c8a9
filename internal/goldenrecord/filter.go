// internal/goldenrecord/filter.go
package goldenrecord

import (
	"strings"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/models"
)

// ==========================================================================
// FIELD FILTER
// ==========================================================================

// Exclusion reasons as they appear in diagnostics and counts.
const (
	ReasonHiddenVisibility = "hidden_visibility"
	ReasonInternalField    = "internal_field"
	ReasonGroupField       = "group_field"
	ReasonUnknownType      = "unknown_type"
	ReasonEmptyLabels      = "empty_labels"
	ReasonCategoryDenied   = "category_denied"
)

// internalPrefixes mark machinery fields that never belong in a golden record.
var internalPrefixes = []string{"attachment", "calculated", "sys"}

// FilterResult partitions records without losing any: len(Included) plus
// len(Excluded) always equals the input length.
type FilterResult struct {
	Included []*models.FieldRecord
	Excluded []*models.FieldRecord
	Reasons  map[*models.FieldRecord]string
	Counts   map[string]int
}

// Filter applies built-in exclusions plus the run's requested policies.
// Built-ins always apply: hidden visibility and internal machinery fields.
type Filter struct {
	policies   map[models.FilterPolicy]bool
	categories map[models.Category]bool
}

func NewFilter(policies []models.FilterPolicy, allow []models.Category) *Filter {
	f := &Filter{
		policies:   map[models.FilterPolicy]bool{},
		categories: map[models.Category]bool{},
	}
	for _, p := range policies {
		f.policies[p] = true
	}
	for _, c := range allow {
		f.categories[c] = true
	}
	return f
}

// Apply partitions the records. Category checks need the resolver-assigned
// category, so the caller passes a lookup; every exclusion emits a
// FIELD_EXCLUDED diagnostic with its reason.
func (f *Filter) Apply(records []*models.FieldRecord, categoryOf func(*models.FieldRecord) models.Category, diags *errors.Collector) *FilterResult {
	res := &FilterResult{
		Reasons: map[*models.FieldRecord]string{},
		Counts:  map[string]int{},
	}
	for _, r := range records {
		if reason := f.excludeReason(r, categoryOf); reason != "" {
			res.Excluded = append(res.Excluded, r)
			res.Reasons[r] = reason
			res.Counts[reason]++
			diags.AddWithMetadata(errors.DiagFieldExcluded, "filter", r.PathString(),
				"field "+r.Identifier+" excluded: "+reason,
				map[string]interface{}{"reason": reason})
			continue
		}
		res.Included = append(res.Included, r)
	}
	return res
}

func (f *Filter) excludeReason(r *models.FieldRecord, categoryOf func(*models.FieldRecord) models.Category) string {
	if r.Visibility == "none" {
		return ReasonHiddenVisibility
	}
	id := strings.ToLower(r.Identifier)
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(id, prefix) {
			return ReasonInternalField
		}
	}
	if f.policies[models.ExcludeGroups] && r.Type == models.FieldTypeGroup {
		return ReasonGroupField
	}
	if f.policies[models.ExcludeUnknownType] && r.Type == models.FieldTypeUnknown {
		return ReasonUnknownType
	}
	if f.policies[models.ExcludeEmptyLabels] && len(r.Labels) == 0 {
		return ReasonEmptyLabels
	}
	if f.policies[models.CategoryAllowlist] && !f.categories[categoryOf(r)] {
		return ReasonCategoryDenied
	}
	return ""
}
