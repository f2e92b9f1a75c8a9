// internal/models/goldenrecord.go
package models

// GoldenRecord is the canonical flat tabular output before byte rendering.
// TechnicalHeader holds business keys, DescriptiveHeader resolved labels; both
// share index positions with every row.
type GoldenRecord struct {
	TechnicalHeader   []string   `json:"technicalHeader"`
	DescriptiveHeader []string   `json:"descriptiveHeader"`
	Rows              [][]string `json:"rows"`
}

// ColumnIndex returns the position of a technical column name, or -1.
func (g *GoldenRecord) ColumnIndex(name string) int {
	for i, h := range g.TechnicalHeader {
		if h == name {
			return i
		}
	}
	return -1
}

// InstanceBinding maps field identifiers (technical column names, raw
// identifiers or extracted identifiers) to one instance's values.
type InstanceBinding struct {
	InstanceID string            `json:"instanceId"`
	Values     map[string]string `json:"values"`
}
