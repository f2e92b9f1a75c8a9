// internal/goldenrecord/data.go
package goldenrecord

import (
	"strings"

	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/internal/parsing"
)

// ==========================================================================
// INSTANCE DATA BINDING
// ==========================================================================

// ExtractBindings flattens an instance data document into one binding per
// top-level record node. Leaf values are keyed three ways so the generator
// can match whichever identifier form a column uses: the leaf's id attribute,
// its tag, and its element-qualified tag.
func ExtractBindings(doc *parsing.Document) []models.InstanceBinding {
	var bindings []models.InstanceBinding
	for _, record := range doc.Root.Children {
		b := models.InstanceBinding{
			InstanceID: record.AttrDefault("id", record.Tag),
			Values:     map[string]string{},
		}
		flattenInto(record, "", b.Values)
		bindings = append(bindings, b)
	}
	return bindings
}

func flattenInto(el *parsing.Element, prefix string, values map[string]string) {
	for _, child := range el.Children {
		key := child.AttrDefault("id", child.Tag)
		if len(child.Children) == 0 {
			if child.Text == "" {
				continue
			}
			values[key] = child.Text
			if prefix != "" {
				values[prefix+"."+strings.ToLower(key)] = child.Text
			}
			continue
		}
		next := strings.ToLower(key)
		if prefix != "" {
			next = prefix + "." + next
		}
		flattenInto(child, next, values)
	}
}
