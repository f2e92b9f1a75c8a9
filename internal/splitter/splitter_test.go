// internal/splitter/splitter_test.go
package splitter

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/models"
)

func fixture() (*models.GoldenRecord, *models.MetadataDocument) {
	golden := &models.GoldenRecord{
		TechnicalHeader: []string{
			"personalinfo.person-id-external",
			"personalinfo.first-name",
			"homeaddress.street",
			"mx_homeaddress.mx_colonia",
		},
		DescriptiveHeader: []string{"Person ID", "First Name", "Street", "Colonia"},
		Rows: [][]string{
			{"P001", "Ana", "Av. Reforma 12", "Roma Norte"},
			{"P002", "Luis", "Calle 5", "Condesa"},
		},
	}
	meta := &models.MetadataDocument{
		Version: "1.0.0",
		Instance: models.InstanceDescriptor{
			ID: "140726_v1", Client: "acme", Consultant: "jdoe", Date: "2026-07-14",
		},
		Fields: []models.FieldMetadata{
			{BusinessKey: "personalinfo.person-id-external", Identifier: "person-id-external", ElementID: "personalInfo", IsPrimaryKey: true},
			{BusinessKey: "personalinfo.first-name", Identifier: "first-name", ElementID: "personalInfo"},
			{BusinessKey: "homeaddress.street", Identifier: "street", ElementID: "homeAddress"},
			{BusinessKey: "mx_homeaddress.mx_colonia", Identifier: "MX_colonia", ElementID: "MX_homeAddress", CountryCode: "MX"},
		},
		KeyMappings: map[string]models.KeyMapping{
			"personalInfo": {KeySource: "own", KeyField: "person-id-external", GoldenColumn: "personalinfo.person-id-external"},
			"homeAddress":  {KeySource: "foreign", KeyField: "person-id-external", GoldenColumn: "personalinfo.person-id-external", References: "personInfo"},
		},
		LayoutConfig: map[string]models.LayoutDefinition{
			"personalInfo": {
				Name: "personalInfo", Filename: "personalInfo.csv",
				Columns: []string{"personalinfo.person-id-external", "personalinfo.first-name"},
				Renames: map[string]string{
					"personalinfo.person-id-external": "person-id-external",
					"personalinfo.first-name":         "first-name",
				},
			},
			"homeAddress": {
				Name: "homeAddress", Filename: "homeAddress.csv",
				Columns: []string{"personalinfo.person-id-external", "homeaddress.street"},
				Renames: map[string]string{
					"personalinfo.person-id-external": "personInfo.person-id-external",
					"homeaddress.street":              "street",
				},
			},
		},
	}
	return golden, meta
}

func TestSplit_ByElement(t *testing.T) {
	golden, meta := fixture()

	layouts, err := NewSplitter(logger.NewTestLogger(t)).Split(golden, meta, models.GroupByElement)
	require.NoError(t, err)
	require.Len(t, layouts, 3)

	personal := layouts[0]
	assert.Equal(t, "personalInfo.csv", personal.Filename)
	assert.Equal(t, []string{"person-id-external", "first-name"}, personal.Header)
	assert.Equal(t, [][]string{{"P001", "Ana"}, {"P002", "Luis"}}, personal.Rows)

	// homeAddress borrows personalInfo's key column, renamed to show where
	// it came from.
	address := layouts[1]
	assert.Equal(t, []string{"personInfo.person-id-external", "street"}, address.Header)
	assert.Equal(t, [][]string{{"P001", "Av. Reforma 12"}, {"P002", "Calle 5"}}, address.Rows)
}

func TestSplit_ByCountry(t *testing.T) {
	golden, meta := fixture()

	layouts, err := NewSplitter(logger.NewTestLogger(t)).Split(golden, meta, models.GroupByCountry)
	require.NoError(t, err)
	require.Len(t, layouts, 1)

	// The country table keeps the instance-identifying key column in front of
	// its own columns, so rows stay joinable back to the golden record.
	mx := layouts[0]
	assert.Equal(t, "MX", mx.Name)
	assert.Equal(t, []string{"personInfo.person-id-external", "MX_colonia"}, mx.Header)
	assert.Equal(t, [][]string{{"P001", "Roma Norte"}, {"P002", "Condesa"}}, mx.Rows)
}

func TestSplit_ByCountryRetainsKeyAcrossElements(t *testing.T) {
	golden, meta := fixture()
	golden.TechnicalHeader = append(golden.TechnicalHeader, "mx_personalinfo.mx_curp")
	golden.DescriptiveHeader = append(golden.DescriptiveHeader, "CURP")
	golden.Rows[0] = append(golden.Rows[0], "ANAA800101")
	golden.Rows[1] = append(golden.Rows[1], "LUIS900202")
	meta.Fields = append(meta.Fields, models.FieldMetadata{
		BusinessKey: "mx_personalinfo.mx_curp", Identifier: "MX_curp",
		ElementID: "MX_personalInfo", CountryCode: "MX",
	})

	layouts, err := NewSplitter(logger.NewTestLogger(t)).Split(golden, meta, models.GroupByCountry)
	require.NoError(t, err)
	require.Len(t, layouts, 1)

	// Two MX elements with the same key column produce one key plus two data
	// columns; own keys render without an element prefix.
	mx := layouts[0]
	assert.Equal(t, []string{"person-id-external", "MX_colonia", "MX_curp"}, mx.Header)
	assert.Equal(t, [][]string{
		{"P001", "Roma Norte", "ANAA800101"},
		{"P002", "Condesa", "LUIS900202"},
	}, mx.Rows)
}

func TestSplit_NoGroupsIsFatal(t *testing.T) {
	golden, meta := fixture()
	for i := range meta.Fields {
		meta.Fields[i].CountryCode = ""
	}

	_, err := NewSplitter(logger.NewNoOpLogger()).Split(golden, meta, models.GroupByCountry)
	require.Error(t, err)
	var perr *errors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrCodeNoGroupsFound, perr.Code)
}

func TestBundle(t *testing.T) {
	golden, meta := fixture()
	layouts, err := NewSplitter(logger.NewNoOpLogger()).Split(golden, meta, models.GroupByElement)
	require.NoError(t, err)

	payload, err := Bundle(layouts)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	// Entries sort by filename regardless of layout order.
	assert.Equal(t, "MX_homeAddress.csv", zr.File[0].Name)

	f, err := zr.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"personInfo.person-id-external", "street"}, rows[0])
}
