// internal/parsing/element.go
package parsing

// Attr is one ordered attribute. Attributes keep document order; duplicate
// handling happens in the normalizer, not here.
type Attr struct {
	Key   string
	Value string
}

// Element is one node of the structure tree. Every element is owned by exactly
// one parent; cross-references stay as attribute strings and are resolved into
// the NormalizedDocument index, never as live child pointers.
type Element struct {
	Tag       string
	Namespace string
	Attrs     []Attr
	Text      string
	Children  []*Element
	Parent    *Element
	Line      int
}

// Attr returns the value of the first attribute with the given key.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// AttrDefault returns the attribute value or a fallback.
func (e *Element) AttrDefault(key, fallback string) string {
	if v, ok := e.Attr(key); ok {
		return v
	}
	return fallback
}

// SetAttr overwrites an attribute in place or appends it.
func (e *Element) SetAttr(key, value string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Key: key, Value: value})
}

// RemoveAttr drops an attribute, keeping the order of the rest.
func (e *Element) RemoveAttr(key string) {
	out := e.Attrs[:0]
	for _, a := range e.Attrs {
		if a.Key != key {
			out = append(out, a)
		}
	}
	e.Attrs = out
}

// Path walks parent pointers up to the root and returns the tag chain,
// root first.
func (e *Element) Path() []string {
	var rev []string
	for n := e; n != nil; n = n.Parent {
		rev = append(rev, n.Tag)
	}
	path := make([]string, len(rev))
	for i, t := range rev {
		path[len(rev)-1-i] = t
	}
	return path
}

// Walk visits the element and all descendants depth-first in document order.
// Returning false from fn stops descent into that element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Clone deep-copies the element subtree. The clone's Parent is nil.
func (e *Element) Clone() *Element {
	out := &Element{
		Tag:       e.Tag,
		Namespace: e.Namespace,
		Text:      e.Text,
		Line:      e.Line,
		Attrs:     append([]Attr(nil), e.Attrs...),
	}
	for _, c := range e.Children {
		cc := c.Clone()
		cc.Parent = out
		out.Children = append(out.Children, cc)
	}
	return out
}

// Document is a parsed structure document before normalization.
type Document struct {
	Root       *Element
	Source     string
	Encoding   string
	Namespaces map[string]string
}
