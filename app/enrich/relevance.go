package enrich

import (
	"fmt"

	"github.com/lysyi3m/rss-curator/app/feed"
)

// Relevance keeps items tagged with any positive label and none of the
// exclusion labels.
type Relevance struct {
	positive  []string
	exclusion []string
}

func NewRelevance(positive, exclusion []string) *Relevance {
	return &Relevance{positive: positive, exclusion: exclusion}
}

func NewRelevanceFromConfig(config feed.RelevanceConfig) *Relevance {
	return NewRelevance(config.Positive, config.Exclusion)
}

func DefaultRelevance() *Relevance {
	return NewRelevance(feed.DefaultPositiveTags, feed.DefaultExclusionTags)
}

func (r *Relevance) IsRelevant(tags feed.Tags) bool {
	relevant, _ := r.Check(tags)
	return relevant
}

// Check applies the policy and explains a rejection.
func (r *Relevance) Check(tags feed.Tags) (bool, string) {
	for _, label := range r.exclusion {
		if tags.Has(label) {
			return false, fmt.Sprintf("excluded by tag '%s'", label)
		}
	}

	for _, label := range r.positive {
		if tags.Has(label) {
			return true, ""
		}
	}

	return false, fmt.Sprintf("none of %v", r.positive)
}
