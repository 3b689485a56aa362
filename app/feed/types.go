package feed

import (
	"slices"
	"time"
)

// Feed processing types

// Item is one normalized feed entry. Link is its identity everywhere.
type Item struct {
	Title     string
	Link      string
	Published time.Time
	HTMLNoise bool // content was scraped from the rendered page, not an embedded feed field
	Content   string
	Source    string
}

// Entry is a feed entry as parsed, before content normalization.
type Entry struct {
	Title     string
	Link      string
	Published *time.Time
	Content   string // embedded rich content, still marked up
}

const (
	TagAIGC                = "aigc"
	TagDigitalHuman        = "digital_human"
	TagNeuralRendering     = "neural_rendering"
	TagComputerGraphics    = "computer_graphics"
	TagComputerVision      = "computer_vision"
	TagRobotics            = "robotics"
	TagConsumerElectronics = "consumer_electronics"
)

// Taxonomy is the fixed label set every Tags value is defined over.
var Taxonomy = []string{
	TagAIGC,
	TagDigitalHuman,
	TagNeuralRendering,
	TagComputerGraphics,
	TagComputerVision,
	TagRobotics,
	TagConsumerElectronics,
}

var (
	DefaultPositiveTags  = []string{TagAIGC, TagDigitalHuman, TagNeuralRendering, TagComputerGraphics, TagComputerVision}
	DefaultExclusionTags = []string{TagRobotics, TagConsumerElectronics}
)

// Tags maps taxonomy labels to flags. Labels are independent of each other.
type Tags map[string]bool

func (t Tags) Has(label string) bool {
	return t[label]
}

// Active returns the set labels in taxonomy order.
func (t Tags) Active() []string {
	var active []string
	for _, label := range Taxonomy {
		if t[label] {
			active = append(active, label)
		}
	}
	return active
}

func IsTaxonomyLabel(label string) bool {
	return slices.Contains(Taxonomy, label)
}

// Configuration types

type Config struct {
	Sources   []*Source       `yaml:"sources"`
	Relevance RelevanceConfig `yaml:"relevance"`
}

type Source struct {
	Name     string         `yaml:"name"`
	URL      string         `yaml:"url"`
	Settings SourceSettings `yaml:"settings"`
	Image    ImageConfig    `yaml:"image"`
}

type SourceSettings struct {
	Disabled bool `yaml:"disabled"`
	Timeout  int  `yaml:"timeout"` // seconds, 0 uses the global fetch timeout
}

type ImageConfig struct {
	Strategy  string `yaml:"strategy"` // none, og_image, selector
	Selector  string `yaml:"selector"`
	Attribute string `yaml:"attribute"`
}

type RelevanceConfig struct {
	Positive  []string `yaml:"positive"`
	Exclusion []string `yaml:"exclusion"`
}

func (s *Source) Enabled() bool {
	return !s.Settings.Disabled
}
