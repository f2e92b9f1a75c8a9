// internal/splitter/splitter.go

// Package splitter partitions a golden record into per-group layout files.
// It consumes the metadata contract, never the structure tree, so it can run
// standalone against previously generated artifacts.
package splitter

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"regexp"
	"sort"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/models"
)

// Layout is one rendered split file.
type Layout struct {
	Name     string
	Filename string
	Header   []string
	Rows     [][]string
}

// Splitter derives per-element or per-country layouts from a golden record.
type Splitter struct {
	logger logger.Logger
}

func NewSplitter(log logger.Logger) *Splitter {
	return &Splitter{logger: log}
}

// Split partitions the golden record's columns by the grouping policy. Each
// layout leads with its key column; column names come from the metadata
// renames, so element prefixes are gone and foreign keys read as
// "referencedElement.keyField". A key column missing from the golden record
// still appears, empty, to keep layout shapes stable.
//
// A policy that produces zero groups is fatal.
func (s *Splitter) Split(golden *models.GoldenRecord, meta *models.MetadataDocument, policy models.GroupPolicy) ([]Layout, error) {
	if policy == "" {
		policy = models.GroupByElement
	}

	groups, order := s.group(meta, policy)
	if len(groups) == 0 {
		return nil, errors.NewNoGroupsFoundError(string(policy))
	}

	var layouts []Layout
	for _, name := range order {
		layouts = append(layouts, s.buildLayout(golden, meta, name, groups[name]))
	}

	s.logger.Info("split golden record", map[string]interface{}{
		"policy":  string(policy),
		"layouts": len(layouts),
	})
	return layouts, nil
}

// group buckets metadata entries by the policy, keeping first-seen order.
// Country grouping only sees country-tagged fields; base fields belong to
// every element layout but no country layout.
func (s *Splitter) group(meta *models.MetadataDocument, policy models.GroupPolicy) (map[string][]models.FieldMetadata, []string) {
	groups := map[string][]models.FieldMetadata{}
	var order []string
	for _, f := range meta.Fields {
		var key string
		switch policy {
		case models.GroupByCountry:
			key = f.CountryCode
		default:
			key = f.ElementID
		}
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}
	return groups, order
}

func (s *Splitter) buildLayout(golden *models.GoldenRecord, meta *models.MetadataDocument, name string, fields []models.FieldMetadata) Layout {
	layout := Layout{Name: name, Filename: name + ".csv"}

	// Columns: instance-identifying key column(s) first, then the group's own
	// columns in golden record order.
	var columns []string
	renames := map[string]string{}
	if def, ok := meta.LayoutConfig[name]; ok {
		columns = def.Columns
		renames = def.Renames
		layout.Filename = def.Filename
	} else {
		seen := map[string]bool{}
		for _, km := range keyMappings(meta, fields) {
			seen[km.GoldenColumn] = true
			columns = append(columns, km.GoldenColumn)
			if km.KeySource == "foreign" {
				renames[km.GoldenColumn] = km.References + "." + km.KeyField
			} else {
				renames[km.GoldenColumn] = km.KeyField
			}
		}
		for _, f := range fields {
			if seen[f.BusinessKey] {
				continue
			}
			columns = append(columns, f.BusinessKey)
			renames[f.BusinessKey] = f.Identifier
		}
	}

	indexes := make([]int, len(columns))
	for i, col := range columns {
		indexes[i] = golden.ColumnIndex(col)
		displayName := renames[col]
		if displayName == "" {
			displayName = col
		}
		layout.Header = append(layout.Header, displayName)
	}

	for _, row := range golden.Rows {
		out := make([]string, len(columns))
		for i, idx := range indexes {
			if idx >= 0 && idx < len(row) {
				out[i] = row[idx]
			}
		}
		layout.Rows = append(layout.Rows, out)
	}
	return layout
}

// keyMappings resolves the instance-identifying columns for a group, in the
// group's field order. Country groups carry prefixed element ids
// ("MX_homeAddress"), so lookups fall back to the unprefixed element. When
// several elements share one key column, an own mapping beats a foreign one.
func keyMappings(meta *models.MetadataDocument, fields []models.FieldMetadata) []models.KeyMapping {
	var keys []models.KeyMapping
	index := map[string]int{}
	for _, f := range fields {
		km, ok := meta.KeyMappings[f.ElementID]
		if !ok {
			km, ok = meta.KeyMappings[stripCountryPrefix(f.ElementID)]
		}
		if !ok {
			continue
		}
		if i, dup := index[km.GoldenColumn]; dup {
			if keys[i].KeySource == "foreign" && km.KeySource == "own" {
				keys[i] = km
			}
			continue
		}
		index[km.GoldenColumn] = len(keys)
		keys = append(keys, km)
	}
	return keys
}

var countryPrefix = regexp.MustCompile(`^[A-Z]{2,3}_`)

func stripCountryPrefix(elementID string) string {
	return countryPrefix.ReplaceAllString(elementID, "")
}

// Bundle renders the layouts as CSV files inside a zip archive, sorted by
// filename for reproducible bytes.
func Bundle(layouts []Layout) ([]byte, error) {
	sorted := append([]Layout(nil), layouts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, layout := range sorted {
		f, err := zw.Create(layout.Filename)
		if err != nil {
			return nil, err
		}
		w := csv.NewWriter(f)
		w.UseCRLF = true
		if err := w.Write(layout.Header); err != nil {
			return nil, err
		}
		for _, row := range layout.Rows {
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
