// internal/goldenrecord/processor.go
package goldenrecord

import (
	"regexp"
	"sort"
	"strings"

	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/internal/parsing"
	"goldenrecord-engine/pkg/registry"
)

// ==========================================================================
// ELEMENT PROCESSOR
// ==========================================================================

// Processor turns a normalized structure tree into an ordered list of field
// records. Ordering is total and deterministic: canonical element hierarchy
// first, then field class (identifiers, dates, plain, custom), then document
// order.
type Processor struct {
	registry *registry.FieldRegistry
	logger   logger.Logger
}

func NewProcessor(reg *registry.FieldRegistry, log logger.Logger) *Processor {
	return &Processor{registry: reg, logger: log}
}

// langSuffix matches attribute keys like "label_es-mx" or "label_en".
var langSuffix = regexp.MustCompile(`^label[-_]([a-z]{2}(?:-[a-z]{2})?)$`)

// Process walks the tree depth-first and collects one record per field node.
// Group containers emit no record themselves unless explicitly typed as a
// field. Registry-declared event-date fields are injected per element when
// the source omits them.
func (p *Processor) Process(norm *parsing.NormalizedDocument) []*models.FieldRecord {
	var records []*models.FieldRecord
	perElement := map[string]bool{} // elementID -> has any field

	type frame struct {
		el        *parsing.Element
		elementID string
		path      []string
	}
	var walk func(f frame)
	walk = func(f frame) {
		for _, child := range f.el.Children {
			id := child.AttrDefault("id", child.Tag)
			switch {
			case isFieldNode(child):
				rec := p.buildRecord(child, f.elementID, f.path)
				records = append(records, rec)
				perElement[f.elementID] = true
			case isElementNode(child):
				walk(frame{el: child, elementID: id, path: append(append([]string{}, f.path...), id)})
			default:
				// Plain structural node (groups, wrappers): descend without
				// changing the owning element.
				walk(frame{el: child, elementID: f.elementID, path: append(append([]string{}, f.path...), id)})
			}
		}
	}
	walk(frame{el: norm.Doc.Root, elementID: norm.Doc.Root.AttrDefault("id", norm.Doc.Root.Tag)})

	records = p.injectDeclaredFields(records)
	p.sortRecords(records)

	p.logger.Info("processed structure tree", map[string]interface{}{
		"fields":   len(records),
		"elements": len(perElement),
	})
	return records
}

func (p *Processor) buildRecord(el *parsing.Element, elementID string, path []string) *models.FieldRecord {
	identifier := el.AttrDefault("id", el.Tag)
	rec := &models.FieldRecord{
		Identifier:  identifier,
		ElementID:   elementID,
		Path:        append(append([]string{}, path...), identifier),
		Type:        typeOf(el),
		Visibility:  el.AttrDefault("visibility", ""),
		CountryCode: el.AttrDefault(parsing.AttrCountry, ""),
		Origin:      el.AttrDefault(parsing.AttrOrigin, parsing.OriginBase),
	}

	// Language-suffixed label attributes come first in attribute order.
	for _, a := range el.Attrs {
		if m := langSuffix.FindStringSubmatch(a.Key); m != nil {
			rec.SetLabel(m[1], a.Value)
		}
	}
	// Then label children, document order. A label without a language claims
	// the untagged default slot.
	for _, child := range el.Children {
		if !strings.Contains(child.Tag, "label") || child.Text == "" {
			continue
		}
		lang := strings.ToLower(child.AttrDefault("lang", child.AttrDefault("language", "")))
		rec.SetLabel(lang, child.Text)
	}
	return rec
}

// injectDeclaredFields synthesizes registry-declared event-date fields for
// elements that have records but lack the declared field.
func (p *Processor) injectDeclaredFields(records []*models.FieldRecord) []*models.FieldRecord {
	seen := map[string]map[string]bool{} // elementID -> identifier set
	for _, r := range records {
		if seen[r.ElementID] == nil {
			seen[r.ElementID] = map[string]bool{}
		}
		seen[r.ElementID][r.Identifier] = true
	}
	for elementID, identifiers := range seen {
		fieldID, ok := p.registry.InjectedFieldFor(elementID)
		if !ok || identifiers[fieldID] {
			continue
		}
		rec := &models.FieldRecord{
			Identifier: fieldID,
			ElementID:  elementID,
			Path:       []string{elementID, fieldID},
			Type:       models.FieldTypeText,
			Origin:     parsing.OriginBase,
		}
		rec.SetLabel("", titleCase(fieldID))
		records = append(records, rec)
		p.logger.Debug("injected declared field", map[string]interface{}{
			"element": elementID,
			"field":   fieldID,
		})
	}
	return records
}

func (p *Processor) sortRecords(records []*models.FieldRecord) {
	rank := map[*models.FieldRecord]int{}
	for i, r := range records {
		rank[r] = i // document order, and injected fields after it
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		ar, br := p.registry.HierarchyRank(a.ElementID), p.registry.HierarchyRank(b.ElementID)
		if ar != br {
			return ar < br
		}
		if a.ElementID != b.ElementID {
			return a.ElementID < b.ElementID
		}
		ac, bc := fieldClass(a.Identifier), fieldClass(b.Identifier)
		if ac != bc {
			return ac < bc
		}
		return rank[a] < rank[b]
	})
}

// fieldClass orders fields within an element: identifying keys, then dates,
// then plain fields, custom fields last.
func fieldClass(identifier string) int {
	id := strings.ToLower(identifier)
	switch {
	case id == "id" || strings.HasSuffix(id, "-id") || strings.HasSuffix(id, "_id") ||
		strings.Contains(id, "id-external"):
		return 0
	case strings.Contains(id, "date"):
		return 1
	case strings.HasPrefix(id, "custom"):
		return 3
	default:
		return 2
	}
}

func isFieldNode(el *parsing.Element) bool {
	return strings.Contains(el.Tag, "field")
}

func isElementNode(el *parsing.Element) bool {
	return strings.Contains(el.Tag, "element")
}

func typeOf(el *parsing.Element) models.FieldType {
	if raw, ok := el.Attr("type"); ok {
		return models.FieldTypeFromAttr(raw)
	}
	for _, c := range el.Children {
		if isFieldNode(c) {
			return models.FieldTypeGroup
		}
	}
	return models.FieldTypeUnknown
}

// titleCase renders "event-date" as "Event Date" for injected labels.
func titleCase(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
