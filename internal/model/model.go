// Package model defines the shared data types flowing through the
// ingestion, clustering, impact-mapping, and query stages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Article is a raw news item as loaded from a dataset file or an RSS feed.
// Articles are immutable once ingested.
type Article struct {
	ID          string     `json:"id"`
	Source      string     `json:"source,omitempty"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// Optional pre-tagged metadata from the dataset. Usually empty for
	// live feeds; enrichment fills the gaps later.
	Tickers    []string `json:"tickers,omitempty"`
	Sectors    []string `json:"sectors,omitempty"`
	Regulators []string `json:"regulators,omitempty"`
}

// NewID returns a fresh identifier for articles and stories.
func NewID() string {
	return uuid.NewString()
}

// Story is a cluster of articles believed to report the same underlying
// event. Member IDs keep insertion order; stories partition the article set.
type Story struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	ArticleIDs []string `json:"article_ids"`

	Sectors    []string `json:"sectors,omitempty"`
	Regulators []string `json:"regulators,omitempty"`
	Tickers    []string `json:"tickers,omitempty"`
	Sources    []string `json:"sources,omitempty"`

	// Embedding is the representative vector of the cluster, cached from
	// the first member article. It is never recomputed on merge so the
	// first article acts as the cluster anchor.
	Embedding []float64 `json:"-"`
}

// Impact-type tags for ImpactedEntity.
const (
	ImpactDirect     = "direct"
	ImpactSector     = "sector"
	ImpactRegulatory = "regulatory"
)

// ImpactedEntity records that a stock symbol is affected by a story,
// with what confidence, and why.
type ImpactedEntity struct {
	Symbol      string   `json:"symbol"`
	Confidence  float64  `json:"confidence"`
	ImpactTypes []string `json:"impact_types"`
}

// HasType reports whether the entity carries the given impact-type tag.
func (e ImpactedEntity) HasType(t string) bool {
	for _, it := range e.ImpactTypes {
		if it == t {
			return true
		}
	}
	return false
}

// EnrichedStory is a Story augmented by the impact-aggregation stage.
// It is immutable once produced; a rebuild yields a fresh set.
type EnrichedStory struct {
	Story

	Impacted       []ImpactedEntity `json:"impacted_stocks"`
	Sentiment      string           `json:"sentiment,omitempty"`
	SentimentScore float64          `json:"sentiment_score"`
}

// MaxConfidence returns the highest impact confidence recorded for the
// given symbol, or 0 if the symbol is not impacted.
func (s *EnrichedStory) MaxConfidence(symbol string) float64 {
	var max float64
	for _, e := range s.Impacted {
		if e.Symbol == symbol && e.Confidence > max {
			max = e.Confidence
		}
	}
	return max
}

// QueryResult pairs a story with its relevance score for a query.
// Scores are non-negative and may exceed 1.0 once semantic boosts apply.
type QueryResult struct {
	Story *EnrichedStory `json:"story"`
	Score float64        `json:"score"`
}
