// internal/goldenrecord/finder.go
package goldenrecord

import (
	"strings"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/models"
)

// ==========================================================================
// FIELD FINDER
// ==========================================================================

// Finder answers lookups over a processed record list. Exact lookup of a
// missing identifier is an error; set-valued lookups just return empty.
type Finder struct {
	records []*models.FieldRecord
	byID    map[string][]*models.FieldRecord
}

func NewFinder(records []*models.FieldRecord) *Finder {
	f := &Finder{records: records, byID: map[string][]*models.FieldRecord{}}
	for _, r := range records {
		f.byID[r.Identifier] = append(f.byID[r.Identifier], r)
	}
	return f
}

// FindExact returns all records with the raw identifier. Zero matches is a
// FIELD_NOT_FOUND error.
func (f *Finder) FindExact(identifier string) ([]*models.FieldRecord, error) {
	matches := f.byID[identifier]
	if len(matches) == 0 {
		return nil, errors.NewFieldNotFoundError(identifier)
	}
	return matches, nil
}

// FindByPrefix returns records whose identifier starts with the prefix, in
// record order. May be empty.
func (f *Finder) FindByPrefix(prefix string) []*models.FieldRecord {
	var out []*models.FieldRecord
	for _, r := range f.records {
		if strings.HasPrefix(r.Identifier, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// FindByPath returns records whose path string starts with the given path
// expression ("/"-separated). May be empty.
func (f *Finder) FindByPath(pathPrefix string) []*models.FieldRecord {
	pathPrefix = strings.Trim(pathPrefix, "/")
	var out []*models.FieldRecord
	for _, r := range f.records {
		p := r.PathString()
		if p == pathPrefix || strings.HasPrefix(p, pathPrefix+"/") {
			out = append(out, r)
		}
	}
	return out
}

// FindByElement returns the records owned by an element id. May be empty.
func (f *Finder) FindByElement(elementID string) []*models.FieldRecord {
	var out []*models.FieldRecord
	for _, r := range f.records {
		if r.ElementID == elementID {
			out = append(out, r)
		}
	}
	return out
}
