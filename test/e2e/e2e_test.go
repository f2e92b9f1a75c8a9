// test/e2e/e2e_test.go
package e2e

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldenrecord-engine/internal/common/cache"
	"goldenrecord-engine/internal/common/config"
	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/goldenrecord"
	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/internal/pipeline"
)

const structureXML = `<?xml version="1.0" encoding="UTF-8"?>
<hris-structure version="12">
  <hris-element id="personalInfo">
    <hris-field id="person-id-external" type="string">
      <label>Person ID</label>
    </hris-field>
    <hris-field id="first-name" type="string">
      <label>First Name</label>
      <label lang="es">Nombre</label>
    </hris-field>
    <hris-field id="last-name" type="string">
      <label>Last Name</label>
      <label lang="es">Apellido</label>
    </hris-field>
    <hris-field id="sys-source" type="string">
      <label>Source System</label>
    </hris-field>
  </hris-element>
  <hris-element id="jobInfo">
    <hris-field id="job-title" type="string">
      <label>Job Title</label>
    </hris-field>
  </hris-element>
  <hris-element id="homeAddress">
    <hris-field id="street" type="string">
      <label>Street</label>
      <label lang="es-mx">Calle</label>
    </hris-field>
  </hris-element>
</hris-structure>`

const overlayXML = `<country-overlay>
  <MX>
    <hris-element id="homeAddress">
      <hris-field id="colonia" type="string">
        <label lang="es-mx">Colonia</label>
      </hris-field>
    </hris-element>
  </MX>
</country-overlay>`

const dataXML = `<employees>
  <employee id="E1">
    <personalInfo>
      <person-id-external>P001</person-id-external>
      <first-name>Ana</first-name>
      <last-name>García</last-name>
    </personalInfo>
    <jobInfo><job-title>Analista</job-title></jobInfo>
    <homeAddress><street>Av. Reforma 12</street></homeAddress>
  </employee>
  <employee id="E2">
    <personalInfo>
      <person-id-external>P002</person-id-external>
      <first-name>Luis</first-name>
      <last-name>Pérez</last-name>
    </personalInfo>
    <jobInfo><job-title>Gerente</job-title></jobInfo>
    <homeAddress><street>Calle 5</street></homeAddress>
  </employee>
</employees>`

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			RootMarker:      "hris",
			ExpansionFactor: 10,
			DefaultLanguage: "en-us",
		},
		Output: config.OutputConfig{
			Encoding:   "utf-8-sig",
			HeaderMode: "both",
			Delimiter:  ",",
		},
	}
}

func runFull(t *testing.T, opts models.RunOptions) *pipeline.Result {
	t.Helper()
	p := pipeline.New(testConfig(), nil, logger.NewTestLogger(t), nil, nil)
	res, err := p.Run(context.Background(), pipeline.Input{
		Structure: []byte(structureXML),
		Overlay:   []byte(overlayXML),
		Data:      []byte(dataXML),
		Source:    "structure.xml",
	}, opts)
	require.NoError(t, err)
	return res
}

func TestEndToEnd_SpanishRun(t *testing.T) {
	res := runFull(t, models.RunOptions{
		Language:     "es",
		Country:      "mx",
		Client:       "acme",
		Consultant:   "jdoe",
		SplitLayouts: true,
		GroupBy:      models.GroupByElement,
	})

	// Golden record: canonical element order, machinery field dropped. The
	// injected jobInfo event-date has no value in the data document.
	assert.Equal(t, []string{
		"personalinfo.person-id-external",
		"personalinfo.first-name",
		"personalinfo.last-name",
		"jobinfo.event-date",
		"jobinfo.job-title",
		"homeaddress.street",
		"homeaddress.mx_colonia",
	}, res.Golden.TechnicalHeader)
	assert.Equal(t, "Nombre", res.Golden.DescriptiveHeader[1])
	assert.Equal(t, "Calle", res.Golden.DescriptiveHeader[5])

	require.Len(t, res.Golden.Rows, 2)
	assert.Equal(t, []string{"P001", "Ana", "García", "", "Analista", "Av. Reforma 12", ""}, res.Golden.Rows[0])

	// Rendered CSV: BOM plus both header rows plus the data rows.
	require.True(t, bytes.HasPrefix(res.GoldenCSV, []byte{0xEF, 0xBB, 0xBF}))
	rows, err := csv.NewReader(bytes.NewReader(res.GoldenCSV[3:])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	// Metadata validates against its schema and round-trips.
	parsed, err := goldenrecord.ParseMetadata(res.MetadataJSON)
	require.NoError(t, err)
	assert.Equal(t, res.Metadata, parsed)
	assert.Equal(t, "acme", parsed.Instance.Client)
	assert.Equal(t, "jdoe", parsed.Instance.Consultant)

	// Layout bundle: one CSV per element, readable as a zip.
	zr, err := zip.NewReader(bytes.NewReader(res.LayoutBundle), int64(len(res.LayoutBundle)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"personalInfo.csv", "jobInfo.csv", "homeAddress.csv"}, names)
}

func TestEndToEnd_DiagnosticsAccumulate(t *testing.T) {
	res := runFull(t, models.RunOptions{Language: "es", Country: "mx"})

	counts := map[string]int{}
	for _, d := range res.Diagnostics {
		counts[string(d.Code)]++
	}
	// sys-source is excluded; English-only labels fall back from es-mx.
	assert.Equal(t, 1, counts["FIELD_EXCLUDED"])
	assert.GreaterOrEqual(t, counts["LANGUAGE_FALLBACK"], 2)
}

func TestEndToEnd_CachedStructureRun(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	p := pipeline.New(testConfig(), nil, logger.NewTestLogger(t), nil, store)
	in := pipeline.Input{
		Structure: []byte(structureXML),
		Overlay:   []byte(overlayXML),
		Source:    "structure.xml",
	}
	opts := models.RunOptions{Client: "acme", Consultant: "jdoe"}

	first, err := p.Run(context.Background(), in, opts)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := p.Run(context.Background(), in, opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.GoldenCSV, second.GoldenCSV)
	assert.Equal(t, first.MetadataJSON, second.MetadataJSON)
	assert.Equal(t, first.Golden.TechnicalHeader, second.Golden.TechnicalHeader)
}
