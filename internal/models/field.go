// internal/models/field.go
package models

import "strings"

// FieldType is the closed set of shapes a field record can take.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeChoice  FieldType = "choice"
	FieldTypeNumeric FieldType = "numeric"
	FieldTypeGroup   FieldType = "group"
	FieldTypeUnknown FieldType = "unknown"
)

// FieldTypeFromAttr maps a raw type attribute onto the closed set.
func FieldTypeFromAttr(raw string) FieldType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text", "string", "varchar", "label":
		return FieldTypeText
	case "choice", "picklist", "enum", "select":
		return FieldTypeChoice
	case "numeric", "number", "decimal", "int", "integer", "float", "double":
		return FieldTypeNumeric
	case "group", "composite", "container":
		return FieldTypeGroup
	default:
		return FieldTypeUnknown
	}
}

// Category is a configuration-defined classification tag. The set is closed by
// the registry; CategoryUncategorized is the fallback, never an error.
type Category string

const CategoryUncategorized Category = "uncategorized"

// LabelEntry is one language-tagged label. Entries keep document order, so a
// slice stands in for an ordered map with unique keys.
type LabelEntry struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// FieldRecord is a field as discovered in the normalized structure tree.
// Identifier is raw, exactly as found in source.
type FieldRecord struct {
	Identifier  string       `json:"identifier"`
	ElementID   string       `json:"elementId"`
	Path        []string     `json:"path"`
	Type        FieldType    `json:"type"`
	Labels      []LabelEntry `json:"labels"`
	Visibility  string       `json:"visibility,omitempty"`
	CountryCode string       `json:"countryCode,omitempty"`
	Origin      string       `json:"origin,omitempty"`
}

// Label returns the label for a language code and whether it was present.
func (f *FieldRecord) Label(language string) (string, bool) {
	for _, l := range f.Labels {
		if l.Language == language {
			return l.Value, true
		}
	}
	return "", false
}

// SetLabel inserts or overwrites a label without disturbing insertion order.
func (f *FieldRecord) SetLabel(language, value string) {
	for i, l := range f.Labels {
		if l.Language == language {
			f.Labels[i].Value = value
			return
		}
	}
	f.Labels = append(f.Labels, LabelEntry{Language: language, Value: value})
}

// PathString renders the hierarchical path with "/" separators.
func (f *FieldRecord) PathString() string {
	return strings.Join(f.Path, "/")
}

// BusinessKey is the stable cross-version identity of a field.
type BusinessKey string

// ResolvedField is a FieldRecord after key, category and language resolution.
// It is created once per run and immutable thereafter.
type ResolvedField struct {
	Record        *FieldRecord `json:"record"`
	Key           BusinessKey  `json:"businessKey"`
	Category      Category     `json:"category"`
	Identifier    string       `json:"identifier"` // extracted, human-usable
	Label         string       `json:"label"`      // resolved canonical label
	LanguageTier  int          `json:"languageTier"`
	Included      bool         `json:"included"`
	ExcludeReason string       `json:"excludeReason,omitempty"`
}
