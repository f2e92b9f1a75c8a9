// internal/parsing/normalizer.go
package parsing

import (
	"strings"

	"goldenrecord-engine/internal/common/errors"
)

// ==========================================================================
// NORMALIZER
// ==========================================================================

// ResolvedReference is one attribute link that resolved against the id index.
type ResolvedReference struct {
	SourcePath string
	Attr       string
	TargetID   string
}

// NormalizedDocument is a Document with canonical text/attributes plus the
// lookup tables later stages use. References are a table, never pointers, so
// the tree stays a tree.
type NormalizedDocument struct {
	Doc        *Document
	IDIndex    map[string]*Element
	References []ResolvedReference
}

// Normalizer canonicalizes a loaded document and wires up references.
type Normalizer struct {
	// RootMarker must appear (case-insensitive) in the root tag for the
	// document to count as a structure document.
	RootMarker string
}

func NewNormalizer(rootMarker string) *Normalizer {
	if rootMarker == "" {
		rootMarker = "hris"
	}
	return &Normalizer{RootMarker: rootMarker}
}

// Normalize rewrites the tree in place and returns it with indexes attached.
//
// Per element: text whitespace is collapsed and trimmed, attribute keys are
// lower-cased with last-wins dedup at the first key's position. After the
// rewrite an id index is built and, when the index is non-empty, reference
// attributes are resolved; an unresolvable reference drops the attribute and
// records a diagnostic, it never fails the run.
func (n *Normalizer) Normalize(doc *Document, diags *errors.Collector) (*NormalizedDocument, error) {
	if !strings.Contains(strings.ToLower(doc.Root.Tag), strings.ToLower(n.RootMarker)) {
		return nil, errors.NewStructuralViolationError(doc.Source, doc.Root.Tag, n.RootMarker)
	}

	norm := &NormalizedDocument{Doc: doc, IDIndex: map[string]*Element{}}

	doc.Root.Walk(func(el *Element) bool {
		el.Text = collapseWhitespace(el.Text)
		el.Attrs = canonicalizeAttrs(el.Attrs)
		if id, ok := el.Attr("id"); ok && id != "" {
			if _, dup := norm.IDIndex[id]; !dup {
				norm.IDIndex[id] = el
			}
		}
		return true
	})

	// A document with no ids at all does not use id-based referencing;
	// leave *_id attributes alone instead of flagging every one.
	if len(norm.IDIndex) == 0 {
		return norm, nil
	}

	doc.Root.Walk(func(el *Element) bool {
		kept := el.Attrs[:0]
		for _, a := range el.Attrs {
			if !isReferenceAttr(a.Key) || a.Value == "" {
				kept = append(kept, a)
				continue
			}
			if _, ok := norm.IDIndex[a.Value]; !ok {
				diags.Add(errors.DiagUnresolvedReference, "normalize",
					strings.Join(el.Path(), "/"),
					"attribute %s points at unknown id %q", a.Key, a.Value)
				continue
			}
			norm.References = append(norm.References, ResolvedReference{
				SourcePath: strings.Join(el.Path(), "/"),
				Attr:       a.Key,
				TargetID:   a.Value,
			})
			kept = append(kept, a)
		}
		el.Attrs = kept
		return true
	})

	return norm, nil
}

// isReferenceAttr matches keys that designate a link to another element's id.
// A bare "id" declares identity, it never references.
func isReferenceAttr(key string) bool {
	if key == "id" {
		return false
	}
	return strings.HasSuffix(key, "ref") ||
		strings.HasSuffix(key, "-id") ||
		strings.HasSuffix(key, "_id")
}

// canonicalizeAttrs lower-cases keys and dedups last-wins, keeping each key at
// its first position.
func canonicalizeAttrs(attrs []Attr) []Attr {
	if len(attrs) == 0 {
		return attrs
	}
	out := make([]Attr, 0, len(attrs))
	pos := make(map[string]int, len(attrs))
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if i, seen := pos[key]; seen {
			out[i].Value = a.Value
			continue
		}
		pos[key] = len(out)
		out = append(out, Attr{Key: key, Value: a.Value})
	}
	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
