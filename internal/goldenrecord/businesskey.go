// internal/goldenrecord/businesskey.go
package goldenrecord

import (
	"regexp"
	"strings"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/models"
)

// ==========================================================================
// BUSINESS KEYS
// ==========================================================================

var (
	indexSuffix  = regexp.MustCompile(`\[\d+\]$`)
	originSuffix = regexp.MustCompile(`_(csf|sdm|mixed)$`)
	nsPrefix     = regexp.MustCompile(`^[a-zA-Z][\w.-]*:`)
)

// ComputeBusinessKey derives the stable identity of a field: the normalized
// lower-case path joined with dots plus the normalized identifier. Index
// suffixes and origin markers are stripped; country prefixes stay, since the
// same field differs per country on purpose.
func ComputeBusinessKey(r *models.FieldRecord) models.BusinessKey {
	parts := make([]string, 0, len(r.Path))
	for _, seg := range r.Path {
		parts = append(parts, normalizeSegment(seg))
	}
	if len(parts) == 0 || parts[len(parts)-1] != normalizeSegment(r.Identifier) {
		parts = append(parts, normalizeSegment(r.Identifier))
	}
	return models.BusinessKey(strings.Join(parts, "."))
}

func normalizeSegment(seg string) string {
	seg = nsPrefix.ReplaceAllString(seg, "")
	seg = indexSuffix.ReplaceAllString(seg, "")
	seg = originSuffix.ReplaceAllString(seg, "")
	return strings.ToLower(strings.TrimSpace(seg))
}

// AssignKeys computes keys for all records and resolves collisions first-wins:
// the first record keeps the key, later holders are reported and marked.
// Returns the surviving record per key in input order.
func AssignKeys(resolved []*models.ResolvedField, diags *errors.Collector) map[models.BusinessKey]*models.ResolvedField {
	owners := make(map[models.BusinessKey]*models.ResolvedField, len(resolved))
	for _, rf := range resolved {
		rf.Key = ComputeBusinessKey(rf.Record)
		if first, dup := owners[rf.Key]; dup {
			diags.AddWithMetadata(errors.DiagDuplicateBusinessKey, "resolution",
				rf.Record.PathString(),
				"business key "+string(rf.Key)+" already assigned",
				map[string]interface{}{
					"key":    string(rf.Key),
					"winner": first.Record.PathString(),
				})
			rf.Included = false
			rf.ExcludeReason = "duplicate_business_key"
			continue
		}
		owners[rf.Key] = rf
	}
	return owners
}

// ExtractIdentifier turns a raw source identifier into its human-usable form:
// namespace prefixes and index suffixes removed, everything else untouched.
func ExtractIdentifier(raw string) string {
	raw = nsPrefix.ReplaceAllString(raw, "")
	return indexSuffix.ReplaceAllString(raw, "")
}
