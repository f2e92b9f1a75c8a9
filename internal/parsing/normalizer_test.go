// internal/parsing/normalizer_test.go
package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/common/logger"
)

func mustLoad(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Load([]byte(data), "structure.xml", DefaultLoaderOptions())
	require.NoError(t, err)
	return doc
}

func newCollector(t *testing.T) *errors.Collector {
	t.Helper()
	return errors.NewCollector(logger.NewTestLogger(t))
}

func TestNormalize_RootMarker(t *testing.T) {
	tests := []struct {
		name    string
		rootTag string
		wantErr bool
	}{
		{name: "canonical root", rootTag: "hris-structure", wantErr: false},
		{name: "marker embedded", rootTag: "succession-hris-model", wantErr: false},
		{name: "marker case-insensitive", rootTag: "HRIS-Structure", wantErr: false},
		{name: "foreign document", rootTag: "payroll-export", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustLoad(t, "<"+tt.rootTag+"/>")
			_, err := NewNormalizer("hris").Normalize(doc, newCollector(t))
			if tt.wantErr {
				var perr *errors.PipelineError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, errors.ErrCodeStructuralViolation, perr.Code)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalize_CanonicalizesTextAndAttrs(t *testing.T) {
	doc := mustLoad(t, `<hris-structure>
  <hris-field ID="first-name" Visibility="both" visibility="none">
    <label>  First
	Name  </label>
  </hris-field>
</hris-structure>`)

	norm, err := NewNormalizer("hris").Normalize(doc, newCollector(t))
	require.NoError(t, err)

	field := norm.Doc.Root.Children[0]
	// Keys lower-cased; the duplicate keeps the first position, last value.
	require.Len(t, field.Attrs, 2)
	assert.Equal(t, Attr{Key: "id", Value: "first-name"}, field.Attrs[0])
	assert.Equal(t, Attr{Key: "visibility", Value: "none"}, field.Attrs[1])

	assert.Equal(t, "First Name", field.Children[0].Text)
	assert.Same(t, field, norm.IDIndex["first-name"])
}

func TestNormalize_ResolvesReferences(t *testing.T) {
	doc := mustLoad(t, `<hris-structure>
  <hris-element id="jobInfo">
    <hris-field id="manager" picklist-ref="managers" country_id="ghost"/>
  </hris-element>
  <picklist id="managers"/>
</hris-structure>`)

	diags := newCollector(t)
	norm, err := NewNormalizer("hris").Normalize(doc, diags)
	require.NoError(t, err)

	field := norm.Doc.Root.Children[0].Children[0]
	// The resolvable ref survives, the dangling one is dropped.
	_, hasRef := field.Attr("picklist-ref")
	assert.True(t, hasRef)
	_, hasGhost := field.Attr("country_id")
	assert.False(t, hasGhost)

	require.Len(t, norm.References, 1)
	assert.Equal(t, "managers", norm.References[0].TargetID)
	assert.Equal(t, "picklist-ref", norm.References[0].Attr)

	assert.Equal(t, 1, diags.CountByCode(errors.DiagUnresolvedReference))
}

func TestNormalize_NoIDIndexKeepsReferenceAttrs(t *testing.T) {
	// Without any id attributes the document does not use id-based
	// referencing; *_id and *-ref attributes stay put, no diagnostics.
	doc := mustLoad(t, `<hris-structure>
  <hris-field picklist-ref="managers" country_id="MX"/>
</hris-structure>`)

	diags := newCollector(t)
	norm, err := NewNormalizer("hris").Normalize(doc, diags)
	require.NoError(t, err)

	field := norm.Doc.Root.Children[0]
	_, hasRef := field.Attr("picklist-ref")
	assert.True(t, hasRef)
	_, hasCountry := field.Attr("country_id")
	assert.True(t, hasCountry)
	assert.Empty(t, norm.References)
	assert.Empty(t, diags.All())
}

func TestNormalize_BareIDIsNotAReference(t *testing.T) {
	doc := mustLoad(t, `<hris-structure><hris-field id="nowhere-to-resolve-this"/></hris-structure>`)

	diags := newCollector(t)
	norm, err := NewNormalizer("hris").Normalize(doc, diags)
	require.NoError(t, err)

	_, ok := norm.Doc.Root.Children[0].Attr("id")
	assert.True(t, ok)
	assert.Empty(t, diags.All())
}
