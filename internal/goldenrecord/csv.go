// internal/goldenrecord/csv.go
package goldenrecord

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/models"
)

// ==========================================================================
// CSV GENERATOR
// ==========================================================================

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVGenerator renders the resolved field set as the golden record table.
// Columns are the included fields in resolution order; the technical header
// row carries business keys, the descriptive row resolved labels.
type CSVGenerator struct {
	HeaderMode models.HeaderMode
	Encoding   string
	Delimiter  rune
}

func NewCSVGenerator(opts models.RunOptions) *CSVGenerator {
	g := &CSVGenerator{
		HeaderMode: opts.HeaderMode,
		Encoding:   strings.ToLower(opts.Encoding),
		Delimiter:  opts.Delimiter,
	}
	if g.HeaderMode == "" {
		g.HeaderMode = models.HeaderBoth
	}
	if g.Encoding == "" {
		g.Encoding = "utf-8-sig"
	}
	if g.Delimiter == 0 {
		g.Delimiter = ','
	}
	return g
}

// Generate builds the table and its byte rendering. Every row has exactly one
// cell per column; instance values bind by business key first, then raw and
// extracted identifier. Unrepresentable characters in the target encoding are
// fatal with the offending column named.
func (g *CSVGenerator) Generate(resolved []*models.ResolvedField, bindings []models.InstanceBinding) (*models.GoldenRecord, []byte, error) {
	fields := Included(resolved)

	table := &models.GoldenRecord{
		TechnicalHeader:   make([]string, len(fields)),
		DescriptiveHeader: make([]string, len(fields)),
	}
	for i, rf := range fields {
		table.TechnicalHeader[i] = string(rf.Key)
		table.DescriptiveHeader[i] = rf.Label
	}

	for _, b := range bindings {
		row := make([]string, len(fields))
		for i, rf := range fields {
			row[i] = bindValue(b, rf)
		}
		table.Rows = append(table.Rows, row)
	}

	payload, err := g.render(table)
	if err != nil {
		return nil, nil, err
	}
	return table, payload, nil
}

func bindValue(b models.InstanceBinding, rf *models.ResolvedField) string {
	if v, ok := b.Values[string(rf.Key)]; ok {
		return v
	}
	if v, ok := b.Values[rf.Record.Identifier]; ok {
		return v
	}
	if v, ok := b.Values[rf.Identifier]; ok {
		return v
	}
	return ""
}

func (g *CSVGenerator) render(table *models.GoldenRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = g.Delimiter
	w.UseCRLF = true

	if g.HeaderMode == models.HeaderTechnical || g.HeaderMode == models.HeaderBoth {
		if err := g.writeEncoded(w, table, table.TechnicalHeader); err != nil {
			return nil, err
		}
	}
	if g.HeaderMode == models.HeaderDescriptive || g.HeaderMode == models.HeaderBoth {
		if err := g.writeEncoded(w, table, table.DescriptiveHeader); err != nil {
			return nil, err
		}
	}
	for _, row := range table.Rows {
		if err := g.writeEncoded(w, table, row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return g.encode(buf.Bytes())
}

// writeEncoded checks each cell against the target encoding before the row is
// committed, so the error can name its column.
func (g *CSVGenerator) writeEncoded(w *csv.Writer, table *models.GoldenRecord, row []string) error {
	enc := g.encoder()
	if enc != nil {
		for i, cell := range row {
			if _, err := enc.String(cell); err != nil {
				return errors.NewEncodingError(table.TechnicalHeader[i], g.Encoding, err)
			}
		}
	}
	return w.Write(row)
}

// encoder returns nil for UTF-8 variants, which represent everything.
func (g *CSVGenerator) encoder() *encoding.Encoder {
	switch g.Encoding {
	case "utf-8", "utf-8-sig", "utf8":
		return nil
	}
	e, err := ianaindex.IANA.Encoding(g.Encoding)
	if err != nil || e == nil {
		return nil // unknown names surface in encode
	}
	return e.NewEncoder()
}

func (g *CSVGenerator) encode(utf8Payload []byte) ([]byte, error) {
	switch g.Encoding {
	case "utf-8-sig":
		return append(append([]byte{}, utf8BOM...), utf8Payload...), nil
	case "utf-8", "utf8":
		return utf8Payload, nil
	}
	e, err := ianaindex.IANA.Encoding(g.Encoding)
	if err != nil || e == nil {
		return nil, fmt.Errorf("unknown output encoding %q", g.Encoding)
	}
	out, err := e.NewEncoder().Bytes(utf8Payload)
	if err != nil {
		return nil, errors.NewEncodingError("", g.Encoding, err)
	}
	return out, nil
}
