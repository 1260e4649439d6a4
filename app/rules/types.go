package rules

// Kind identifies one of the three rule lists.
type Kind string

const (
	KindStructuralExclude Kind = "structural_exclude"
	KindStructuralInclude Kind = "structural_include"
	KindContentInclude    Kind = "content_include"
)

// File is the complete contents of a rules file.
type File struct {
	Rules     *RuleSet        `yaml:"rules"`
	Settings  Settings        `yaml:"settings"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Feeds     []FeedSource    `yaml:"feeds" validate:"dive"`
}

// RuleSet is immutable once returned by the loader.
type RuleSet struct {
	StructuralExclude []string `yaml:"structural_exclude" validate:"dive,required"`
	StructuralInclude []string `yaml:"structural_include" validate:"dive,required"`
	ContentInclude    []string `yaml:"content_include" validate:"min=1,dive,required"`
}

type Settings struct {
	DimOnSuppress    bool `yaml:"dim_on_suppress"`
	HideOnSuppress   bool `yaml:"hide_on_suppress"`
	DebugAnnotations bool `yaml:"debug_annotations"`
	CountingEnabled  bool `yaml:"counting_enabled"`
}

// ExtractorConfig drives how HTML fragments are split into items.
type ExtractorConfig struct {
	ItemSelector    string `yaml:"item_selector" validate:"required"`
	ContentSelector string `yaml:"content_selector" validate:"required"`
	ExcludeSelector string `yaml:"exclude_selector"`
	ExcludeTarget   string `yaml:"exclude_target"` // content elements dropped inside ExcludeSelector; all of them when empty
	IDAttribute     string `yaml:"id_attribute" validate:"required"`
}

// FeedSource is an RSS/Atom feed polled as an insertion source.
type FeedSource struct {
	Name            string `yaml:"name" validate:"required"`
	URL             string `yaml:"url" validate:"required,url"`
	Enabled         bool   `yaml:"enabled"`
	Initial         bool   `yaml:"initial"`                           // first poll is reported as the initial batch
	RefreshInterval int    `yaml:"refresh_interval" validate:"gte=0"` // seconds
	Timeout         int    `yaml:"timeout" validate:"gte=0"`          // seconds
}
