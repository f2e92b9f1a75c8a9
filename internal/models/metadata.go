// internal/models/metadata.go
package models

// InstanceDescriptor identifies the run that produced an artifact set.
type InstanceDescriptor struct {
	ID               string `json:"id"`
	Client           string `json:"client"`
	Consultant       string `json:"consultant"`
	Date             string `json:"date"`
	StructureVersion string `json:"structureVersion,omitempty"`
	SourcePath       string `json:"sourcePath,omitempty"`
}

// FieldMetadata is one entry in the metadata document, in emission order.
type FieldMetadata struct {
	BusinessKey  string `json:"businessKey"`
	Category     string `json:"category"`
	Identifier   string `json:"identifier"`
	Label        string `json:"label"`
	Path         string `json:"path"`
	ElementID    string `json:"elementId"`
	CountryCode  string `json:"countryCode,omitempty"`
	LanguageTier int    `json:"languageTier"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsForeignKey bool   `json:"isForeignKey"`
}

// KeyMapping records where an element's instance-identifying column comes from.
type KeyMapping struct {
	KeySource    string `json:"keySource"` // own | foreign
	KeyField     string `json:"keyField"`
	GoldenColumn string `json:"goldenColumn"`
	References   string `json:"references,omitempty"`
}

// LayoutDefinition names one column subset of the golden record.
type LayoutDefinition struct {
	Name     string            `json:"name"`
	Filename string            `json:"filename"`
	Columns  []string          `json:"columns"`
	Renames  map[string]string `json:"renames,omitempty"`
}

// MetadataDocument is the structured description of every field used. It is
// the contract consumed by the layout splitter and must round-trip: parsing
// the rendered document reproduces ordering and attributes.
type MetadataDocument struct {
	Version      string                      `json:"version"`
	Instance     InstanceDescriptor          `json:"instance"`
	Fields       []FieldMetadata             `json:"fields"`
	KeyMappings  map[string]KeyMapping       `json:"keyMappings"`
	LayoutConfig map[string]LayoutDefinition `json:"layoutSplitConfig"`
}
