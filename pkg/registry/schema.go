// pkg/registry/schema.go
package registry

// FieldRegistry is the configuration-defined knowledge the pipeline cannot
// derive from a structure document: category rules, the canonical element
// ordering, the key model and injected date fields.
type FieldRegistry struct {
	Version          string                 `json:"version"`
	LastUpdated      string                 `json:"lastUpdated"`
	ElementHierarchy []string               `json:"elementHierarchy"`
	Categories       []CategoryRule         `json:"categories"`
	KeyModel         map[string]ElementKeys `json:"keyModel"`
	InjectedFields   map[string]string      `json:"injectedFields"`
}

// CategoryRule assigns a category id when one of its patterns matches a
// field's extracted identifier or path. Rules are evaluated in order; the
// first match wins.
type CategoryRule struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"displayName"`
	Description        string   `json:"description,omitempty"`
	IdentifierPatterns []string `json:"identifierPatterns,omitempty"`
	PathPatterns       []string `json:"pathPatterns,omitempty"`
}

// ElementKeys declares how instances of an element are identified: its own
// primary key field, or foreign keys into other elements.
type ElementKeys struct {
	PrimaryKey  string            `json:"primaryKey,omitempty"`
	ForeignKeys map[string]string `json:"foreignKeys,omitempty"` // referenced element -> key field
}
