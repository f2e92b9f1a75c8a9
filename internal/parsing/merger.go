// internal/parsing/merger.go
package parsing

import (
	"strings"

	"goldenrecord-engine/internal/common/errors"
)

// ==========================================================================
// OVERLAY MERGER
// ==========================================================================

// Origin markers stamped onto merged elements so downstream stages can tell
// base definitions from country overlays apart.
const (
	AttrOrigin  = "data-origin"
	AttrCountry = "data-country"

	OriginBase    = "sdm"
	OriginOverlay = "csf"
	OriginMixed   = "mixed"
)

// Merger fuses a country overlay document into a base structure document.
// The overlay's root children are country nodes; each country node carries
// element definitions that either extend a base element or stand alone.
type Merger struct {
	// TargetCountry restricts the merge to one country code. Empty merges all.
	TargetCountry string
}

func NewMerger(targetCountry string) *Merger {
	return &Merger{TargetCountry: strings.ToUpper(targetCountry)}
}

// Merge rewrites base in place. Overlay fields get origin/country attributes
// and country-prefixed ids so they never collide with base ids. A base
// element that receives overlay fields is re-marked as mixed origin.
//
// Overlay country nodes that do not look like a country (no two-letter tag or
// country attribute) are skipped with a diagnostic rather than failing.
func (m *Merger) Merge(base *Document, overlay *Document, diags *errors.Collector) {
	index := map[string]*Element{}
	base.Root.Walk(func(el *Element) bool {
		if id, ok := el.Attr("id"); ok && id != "" {
			index[id] = el
		}
		return true
	})

	for _, countryNode := range overlay.Root.Children {
		country := countryCodeOf(countryNode)
		if country == "" {
			diags.Add(errors.DiagUnresolvedReference, "merge",
				strings.Join(countryNode.Path(), "/"),
				"overlay node %q has no country code, skipped", countryNode.Tag)
			continue
		}
		if m.TargetCountry != "" && country != m.TargetCountry {
			continue
		}
		for _, def := range countryNode.Children {
			m.mergeElement(base, index, def, country)
		}
	}
}

func (m *Merger) mergeElement(base *Document, index map[string]*Element, def *Element, country string) {
	defID, _ := def.Attr("id")
	target, exists := index[defID]
	if !exists || defID == "" {
		// Standalone country element: graft a stamped clone under the root.
		clone := def.Clone()
		stampSubtree(clone, country)
		clone.Parent = base.Root
		base.Root.Children = append(base.Root.Children, clone)
		if id, ok := clone.Attr("id"); ok && id != "" {
			index[id] = clone
		}
		return
	}

	// Base element extended by country fields: mark it mixed and append the
	// overlay's children with prefixed ids.
	target.SetAttr(AttrOrigin, OriginMixed)
	for _, child := range def.Children {
		clone := child.Clone()
		stampSubtree(clone, country)
		clone.Parent = target
		target.Children = append(target.Children, clone)
		if id, ok := clone.Attr("id"); ok && id != "" {
			index[id] = clone
		}
	}
}

// stampSubtree marks every node as overlay-origin for the given country and
// prefixes ids with the country code.
func stampSubtree(el *Element, country string) {
	el.Walk(func(n *Element) bool {
		n.SetAttr(AttrOrigin, OriginOverlay)
		n.SetAttr(AttrCountry, country)
		if id, ok := n.Attr("id"); ok && id != "" && !strings.HasPrefix(id, country+"_") {
			n.SetAttr("id", country+"_"+id)
		}
		return true
	})
}

// countryCodeOf accepts either a two-letter tag or an explicit country
// attribute, upper-cased.
func countryCodeOf(el *Element) string {
	if c, ok := el.Attr("country"); ok && c != "" {
		return strings.ToUpper(c)
	}
	if len(el.Tag) == 2 {
		return strings.ToUpper(el.Tag)
	}
	return ""
}
