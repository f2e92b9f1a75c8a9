// internal/goldenrecord/metadata.go
package goldenrecord

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/pkg/registry"
)

// ==========================================================================
// METADATA GENERATOR
// ==========================================================================

const metadataVersion = "1.0.0"

const metadataSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "instance", "fields"],
  "properties": {
    "version": {"type": "string"},
    "instance": {
      "type": "object",
      "required": ["id", "client", "consultant", "date"],
      "properties": {
        "id": {"type": "string"},
        "client": {"type": "string"},
        "consultant": {"type": "string"},
        "date": {"type": "string"}
      }
    },
    "fields": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["businessKey", "category", "identifier", "label", "path", "elementId", "languageTier"],
        "properties": {
          "businessKey": {"type": "string", "minLength": 1},
          "category": {"type": "string"},
          "identifier": {"type": "string"},
          "label": {"type": "string"},
          "path": {"type": "string"},
          "elementId": {"type": "string"},
          "countryCode": {"type": "string"},
          "languageTier": {"type": "integer", "minimum": 1, "maximum": 4},
          "isPrimaryKey": {"type": "boolean"},
          "isForeignKey": {"type": "boolean"}
        }
      }
    },
    "keyMappings": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["keySource", "keyField", "goldenColumn"],
        "properties": {
          "keySource": {"enum": ["own", "foreign"]},
          "keyField": {"type": "string"},
          "goldenColumn": {"type": "string"},
          "references": {"type": "string"}
        }
      }
    },
    "layoutSplitConfig": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["name", "filename", "columns"],
        "properties": {
          "name": {"type": "string"},
          "filename": {"type": "string"},
          "columns": {"type": "array", "items": {"type": "string"}},
          "renames": {"type": "object", "additionalProperties": {"type": "string"}}
        }
      }
    }
  }
}`

// MetadataGenerator builds the field-level contract the splitter and any
// downstream consumer read. Field order mirrors golden record column order.
type MetadataGenerator struct {
	registry *registry.FieldRegistry
}

func NewMetadataGenerator(reg *registry.FieldRegistry) *MetadataGenerator {
	return &MetadataGenerator{registry: reg}
}

// Build describes the shipping fields plus the key model and layout split
// configuration for the elements actually present.
func (m *MetadataGenerator) Build(instance models.InstanceDescriptor, resolved []*models.ResolvedField) *models.MetadataDocument {
	fields := Included(resolved)

	doc := &models.MetadataDocument{
		Version:      metadataVersion,
		Instance:     instance,
		KeyMappings:  map[string]models.KeyMapping{},
		LayoutConfig: map[string]models.LayoutDefinition{},
	}

	byElement := map[string][]*models.ResolvedField{}
	var elementOrder []string
	for _, rf := range fields {
		keys, _ := m.registry.KeysFor(rf.Record.ElementID)
		doc.Fields = append(doc.Fields, models.FieldMetadata{
			BusinessKey:  string(rf.Key),
			Category:     string(rf.Category),
			Identifier:   rf.Identifier,
			Label:        rf.Label,
			Path:         rf.Record.PathString(),
			ElementID:    rf.Record.ElementID,
			CountryCode:  rf.Record.CountryCode,
			LanguageTier: rf.LanguageTier,
			IsPrimaryKey: keys.PrimaryKey != "" && keys.PrimaryKey == rf.Identifier,
			IsForeignKey: isForeignKeyField(keys, rf.Identifier),
		})
		if _, seen := byElement[rf.Record.ElementID]; !seen {
			elementOrder = append(elementOrder, rf.Record.ElementID)
		}
		byElement[rf.Record.ElementID] = append(byElement[rf.Record.ElementID], rf)
	}

	for _, elementID := range elementOrder {
		group := byElement[elementID]
		mapping, ok := m.keyMappingFor(elementID)
		if ok {
			doc.KeyMappings[elementID] = mapping
		}
		doc.LayoutConfig[elementID] = m.layoutFor(elementID, group, mapping, ok)
	}
	return doc
}

// keyMappingFor prefers an element's own primary key; without one, the first
// declared foreign key (referenced elements sorted for determinism) supplies
// the instance identity.
func (m *MetadataGenerator) keyMappingFor(elementID string) (models.KeyMapping, bool) {
	keys, ok := m.registry.KeysFor(elementID)
	if !ok {
		return models.KeyMapping{}, false
	}
	if keys.PrimaryKey != "" {
		return models.KeyMapping{
			KeySource:    "own",
			KeyField:     keys.PrimaryKey,
			GoldenColumn: columnName(elementID, keys.PrimaryKey),
		}, true
	}
	refs := make([]string, 0, len(keys.ForeignKeys))
	for ref := range keys.ForeignKeys {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		return models.KeyMapping{
			KeySource:    "foreign",
			KeyField:     keys.ForeignKeys[ref],
			GoldenColumn: columnName(ref, keys.ForeignKeys[ref]),
			References:   ref,
		}, true
	}
	return models.KeyMapping{}, false
}

// layoutFor lists the element's columns with the key column first and strips
// the element prefix from rendered names. A foreign key renders as
// "referencedElement.keyField" so the provenance stays visible.
func (m *MetadataGenerator) layoutFor(elementID string, group []*models.ResolvedField, mapping models.KeyMapping, hasKey bool) models.LayoutDefinition {
	def := models.LayoutDefinition{
		Name:     elementID,
		Filename: elementID + ".csv",
		Renames:  map[string]string{},
	}
	prefix := strings.ToLower(elementID) + "."

	if hasKey {
		def.Columns = append(def.Columns, mapping.GoldenColumn)
		if mapping.KeySource == "foreign" {
			def.Renames[mapping.GoldenColumn] = mapping.References + "." + mapping.KeyField
		} else {
			def.Renames[mapping.GoldenColumn] = mapping.KeyField
		}
	}
	for _, rf := range group {
		col := string(rf.Key)
		if col == mapping.GoldenColumn && hasKey {
			continue
		}
		def.Columns = append(def.Columns, col)
		def.Renames[col] = strings.TrimPrefix(col, prefix)
	}
	return def
}

func isForeignKeyField(keys registry.ElementKeys, identifier string) bool {
	for _, kf := range keys.ForeignKeys {
		if kf == identifier {
			return true
		}
	}
	return false
}

func columnName(elementID, fieldID string) string {
	return strings.ToLower(elementID) + "." + strings.ToLower(fieldID)
}

// Render serializes the document with stable indentation.
func (m *MetadataGenerator) Render(doc *models.MetadataDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ParseMetadata validates rendered metadata against the embedded schema and
// unmarshals it. Render followed by ParseMetadata reproduces the document.
func ParseMetadata(data []byte) (*models.MetadataDocument, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(metadataSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("metadata validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid metadata: %s", strings.Join(msgs, "; "))
	}

	var doc models.MetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
