// internal/goldenrecord/csv_test.go
package goldenrecord

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/models"
)

func resolvedFixture(t *testing.T) []*models.ResolvedField {
	t.Helper()
	records := []*models.FieldRecord{
		newRecord("personalInfo", "first-name", models.LabelEntry{Language: "en-us", Value: "First Name"}),
		newRecord("personalInfo", "last-name", models.LabelEntry{Language: "en-us", Value: "Last Name"}),
		newRecord("homeAddress", "street", models.LabelEntry{Language: "en-us", Value: "Street"}),
	}
	diags := errors.NewCollector(logger.NewNoOpLogger())
	resolved, err := defaultResolver().Resolve(records, models.RunOptions{Language: "en", Country: "us"}, diags)
	require.NoError(t, err)
	return resolved
}

func TestGenerate_HeadersAndRows(t *testing.T) {
	resolved := resolvedFixture(t)
	bindings := []models.InstanceBinding{
		{InstanceID: "E1", Values: map[string]string{
			"personalinfo.first-name": "Ana",
			"last-name":               "García",
		}},
		{InstanceID: "E2", Values: map[string]string{
			"personalinfo.first-name": "Luis",
			"homeaddress.street":      "Av. Reforma 12",
		}},
	}

	gen := NewCSVGenerator(models.RunOptions{Encoding: "utf-8", HeaderMode: models.HeaderBoth, Delimiter: ','})
	table, payload, err := gen.Generate(resolved, bindings)
	require.NoError(t, err)

	assert.Equal(t, []string{"personalinfo.first-name", "personalinfo.last-name", "homeaddress.street"}, table.TechnicalHeader)
	assert.Equal(t, []string{"First Name", "Last Name", "Street"}, table.DescriptiveHeader)

	r := csv.NewReader(bytes.NewReader(payload))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	// Every row matches the column count; absent values render empty.
	assert.Equal(t, []string{"Ana", "García", ""}, rows[2])
	assert.Equal(t, []string{"Luis", "", "Av. Reforma 12"}, rows[3])
}

func TestGenerate_HeaderModes(t *testing.T) {
	resolved := resolvedFixture(t)

	tests := []struct {
		mode     models.HeaderMode
		wantRows int
		first    string
	}{
		{mode: models.HeaderTechnical, wantRows: 1, first: "personalinfo.first-name"},
		{mode: models.HeaderDescriptive, wantRows: 1, first: "First Name"},
		{mode: models.HeaderBoth, wantRows: 2, first: "personalinfo.first-name"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			gen := NewCSVGenerator(models.RunOptions{Encoding: "utf-8", HeaderMode: tt.mode})
			_, payload, err := gen.Generate(resolved, nil)
			require.NoError(t, err)

			rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
			require.NoError(t, err)
			require.Len(t, rows, tt.wantRows)
			assert.Equal(t, tt.first, rows[0][0])
		})
	}
}

func TestGenerate_UTF8SigBOM(t *testing.T) {
	resolved := resolvedFixture(t)

	gen := NewCSVGenerator(models.RunOptions{Encoding: "utf-8-sig"})
	_, payload, err := gen.Generate(resolved, nil)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(payload, []byte{0xEF, 0xBB, 0xBF}))
}

func TestGenerate_Latin1Output(t *testing.T) {
	resolved := resolvedFixture(t)
	bindings := []models.InstanceBinding{
		{InstanceID: "E1", Values: map[string]string{"first-name": "José"}},
	}

	gen := NewCSVGenerator(models.RunOptions{Encoding: "iso-8859-1"})
	_, payload, err := gen.Generate(resolved, bindings)
	require.NoError(t, err)

	// é must come out as the single Latin-1 byte, not UTF-8.
	assert.True(t, bytes.Contains(payload, []byte{'J', 'o', 's', 0xE9}))
}

func TestGenerate_UnrepresentableValueFails(t *testing.T) {
	resolved := resolvedFixture(t)
	bindings := []models.InstanceBinding{
		{InstanceID: "E1", Values: map[string]string{"first-name": "山田"}},
	}

	gen := NewCSVGenerator(models.RunOptions{Encoding: "iso-8859-1"})
	_, _, err := gen.Generate(resolved, bindings)
	require.Error(t, err)

	var perr *errors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeEncodingError, perr.Code)
	assert.Equal(t, "personalinfo.first-name", perr.Path)
}

func TestGenerate_UnrepresentableHeaderFails(t *testing.T) {
	records := []*models.FieldRecord{
		newRecord("personalInfo", "山田-id", models.LabelEntry{Language: "en-us", Value: "Yamada ID"}),
	}
	diags := errors.NewCollector(logger.NewNoOpLogger())
	resolved, err := defaultResolver().Resolve(records, models.RunOptions{Language: "en", Country: "us"}, diags)
	require.NoError(t, err)

	// The business key itself cannot encode; the error still names its column.
	gen := NewCSVGenerator(models.RunOptions{Encoding: "iso-8859-1", HeaderMode: models.HeaderTechnical})
	_, _, err = gen.Generate(resolved, nil)
	require.Error(t, err)

	var perr *errors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeEncodingError, perr.Code)
	assert.Equal(t, "personalinfo.山田-id", perr.Path)
}

func TestGenerate_Delimiter(t *testing.T) {
	resolved := resolvedFixture(t)

	gen := NewCSVGenerator(models.RunOptions{Encoding: "utf-8", HeaderMode: models.HeaderTechnical, Delimiter: ';'})
	_, payload, err := gen.Generate(resolved, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(payload), "personalinfo.first-name;"))
}
