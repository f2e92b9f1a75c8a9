// internal/models/options.go
package models

// FilterPolicy enumerates the inclusion policies of the field filter.
type FilterPolicy string

const (
	ExcludeGroups      FilterPolicy = "exclude_groups"
	ExcludeUnknownType FilterPolicy = "exclude_unknown_type"
	ExcludeEmptyLabels FilterPolicy = "exclude_empty_labels"
	CategoryAllowlist  FilterPolicy = "category_allowlist"
)

// GroupPolicy selects how the layout splitter partitions columns.
type GroupPolicy string

const (
	GroupByElement GroupPolicy = "element"
	GroupByCountry GroupPolicy = "country"
)

// HeaderMode selects which header rows the CSV generator emits.
type HeaderMode string

const (
	HeaderTechnical   HeaderMode = "technical"
	HeaderDescriptive HeaderMode = "descriptive"
	HeaderBoth        HeaderMode = "both"
)

// RunOptions are the per-run knobs threaded through the pipeline call.
// Global configuration (default language, category rules) comes from config;
// nothing here is ambient state.
type RunOptions struct {
	Language        string
	Country         string
	TargetCountry   string // restrict country-specific elements to this country
	DefaultLanguage string
	HeaderMode      HeaderMode
	Encoding        string
	Delimiter       rune
	Policies        []FilterPolicy
	AllowCategories []Category
	SplitLayouts    bool
	GroupBy         GroupPolicy
	Client          string
	Consultant      string
	SourcePath      string
}
