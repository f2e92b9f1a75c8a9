// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const registrySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "categories", "elementHierarchy"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "elementHierarchy": {"type": "array", "items": {"type": "string"}},
    "categories": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "displayName"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "displayName": {"type": "string"},
          "description": {"type": "string"},
          "identifierPatterns": {"type": "array", "items": {"type": "string"}},
          "pathPatterns": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "keyModel": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "primaryKey": {"type": "string"},
          "foreignKeys": {"type": "object", "additionalProperties": {"type": "string"}}
        }
      }
    },
    "injectedFields": {"type": "object", "additionalProperties": {"type": "string"}}
  }
}`

// LoadRegistry reads and validates a registry file. Validation runs against
// the embedded JSON schema before unmarshalling, so shape errors surface with
// field paths instead of zero values.
func LoadRegistry(path string) (*FieldRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

// ParseRegistry validates and unmarshals registry JSON bytes.
func ParseRegistry(data []byte) (*FieldRegistry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid registry: %s", strings.Join(msgs, "; "))
	}

	var reg FieldRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// HierarchyRank returns the canonical position of an element id. Elements not
// listed in the hierarchy rank after all listed ones.
func (r *FieldRegistry) HierarchyRank(elementID string) int {
	base := stripCountryPrefix(elementID)
	for i, id := range r.ElementHierarchy {
		if id == base {
			return i
		}
	}
	return len(r.ElementHierarchy)
}

// KeysFor returns the key declaration for an element, looking through country
// prefixes so "MX_taxInfo" inherits from "taxInfo".
func (r *FieldRegistry) KeysFor(elementID string) (ElementKeys, bool) {
	if k, ok := r.KeyModel[elementID]; ok {
		return k, true
	}
	k, ok := r.KeyModel[stripCountryPrefix(elementID)]
	return k, ok
}

// InjectedFieldFor returns the event-date field id to synthesize for an
// element, if the registry declares one.
func (r *FieldRegistry) InjectedFieldFor(elementID string) (string, bool) {
	f, ok := r.InjectedFields[stripCountryPrefix(elementID)]
	return f, ok
}

// stripCountryPrefix removes a leading "XX_" country marker.
func stripCountryPrefix(id string) string {
	if len(id) > 3 && id[2] == '_' &&
		id[0] >= 'A' && id[0] <= 'Z' && id[1] >= 'A' && id[1] <= 'Z' {
		return id[3:]
	}
	return id
}

// Default returns the built-in registry used when no file is configured.
func Default() *FieldRegistry {
	return &FieldRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-07-14",
		ElementHierarchy: []string{
			"personInfo",
			"personalInfo",
			"employmentInfo",
			"jobInfo",
			"compInfo",
			"payComponentRecurring",
			"payComponentNonRecurring",
			"homeAddress",
			"emailInfo",
			"phoneInfo",
			"emergencyContactPrimary",
			"nationalIdCard",
			"paymentInfo",
		},
		Categories: []CategoryRule{
			{
				ID:                 "identification",
				DisplayName:        "Identification",
				IdentifierPatterns: []string{`(?i)national.?id`, `(?i)person.?id`, `(?i)user.?id`, `(?i)-id$`},
			},
			{
				ID:           "compensation",
				DisplayName:  "Compensation",
				PathPatterns: []string{`(?i)comp`, `(?i)pay.?component`},
			},
			{
				ID:           "employment",
				DisplayName:  "Employment",
				PathPatterns: []string{`(?i)employment`, `(?i)job`},
			},
			{
				ID:           "contact",
				DisplayName:  "Contact",
				PathPatterns: []string{`(?i)email`, `(?i)phone`, `(?i)emergency`},
			},
			{
				ID:           "address",
				DisplayName:  "Address",
				PathPatterns: []string{`(?i)address`},
			},
			{
				ID:           "personal",
				DisplayName:  "Personal",
				PathPatterns: []string{`(?i)person`},
			},
		},
		KeyModel: map[string]ElementKeys{
			"personInfo": {PrimaryKey: "person-id-external"},
			"personalInfo": {
				PrimaryKey:  "person-id-external",
				ForeignKeys: map[string]string{"personInfo": "person-id-external"},
			},
			"employmentInfo": {
				PrimaryKey:  "user-id",
				ForeignKeys: map[string]string{"personInfo": "person-id-external"},
			},
			"jobInfo": {
				ForeignKeys: map[string]string{"employmentInfo": "user-id"},
			},
			"compInfo": {
				ForeignKeys: map[string]string{"employmentInfo": "user-id"},
			},
			"homeAddress": {
				ForeignKeys: map[string]string{"personInfo": "person-id-external"},
			},
			"emailInfo": {
				ForeignKeys: map[string]string{"personInfo": "person-id-external"},
			},
			"phoneInfo": {
				ForeignKeys: map[string]string{"personInfo": "person-id-external"},
			},
		},
		InjectedFields: map[string]string{
			"jobInfo":        "event-date",
			"compInfo":       "event-date",
			"employmentInfo": "hire-date",
		},
	}
}
