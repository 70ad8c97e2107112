// Package pipeline wires the three engines together: articles are
// clustered into stories, stories are enriched with impact records, and
// the result is indexed for querying. Each build produces an immutable
// Snapshot; nothing is shared between builds.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/finwire/newsintel/internal/cluster"
	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/impact"
	"github.com/finwire/newsintel/internal/model"
	"github.com/finwire/newsintel/internal/nlp"
	"github.com/finwire/newsintel/internal/query"
)

// Pipeline builds searchable snapshots from raw articles.
type Pipeline struct {
	cfg       *config.Config
	embedder  nlp.Embedder
	extractor nlp.EntityExtractor
	sentiment nlp.SentimentScorer
}

// New creates a pipeline with the default capability implementations:
// Ollama embeddings, the config-driven lexicon extractor, and VADER
// sentiment.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		embedder:  nlp.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.OllamaURL),
		extractor: nlp.NewLexiconExtractor(cfg.Entities),
		sentiment: nlp.NewVaderScorer(),
	}
}

// NewWithCapabilities creates a pipeline with injected capabilities.
func NewWithCapabilities(cfg *config.Config, embedder nlp.Embedder, extractor nlp.EntityExtractor, sentiment nlp.SentimentScorer) *Pipeline {
	return &Pipeline{cfg: cfg, embedder: embedder, extractor: extractor, sentiment: sentiment}
}

// Build runs the full three-stage build over the given articles.
func (p *Pipeline) Build(ctx context.Context, articles []*model.Article) (*Snapshot, error) {
	byID := make(map[string]*model.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	log.Printf("Step 1/3: Clustering %d articles into stories...", len(articles))
	clusterer := cluster.New(p.strategy(), p.clusterConfig())
	for _, a := range articles {
		if _, err := clusterer.Process(ctx, a); err != nil {
			return nil, fmt.Errorf("clustering: %w", err)
		}
	}
	stories := clusterer.Stories()

	log.Printf("Step 2/3: Mapping impact for %d stories...", len(stories))
	mapper := impact.NewMapper(p.extractor, p.sentiment, p.cfg.Impact)
	enriched := make([]*model.EnrichedStory, len(stories))
	for i, s := range stories {
		enriched[i] = mapper.MapStory(s, byID)
	}

	log.Printf("Step 3/3: Indexing %d enriched stories...", len(enriched))
	engine := query.NewEngine(p.extractor, p.embedder, p.cfg.Query)
	engine.Index(enriched)

	return &Snapshot{
		Articles: byID,
		Stories:  stories,
		Enriched: enriched,
		engine:   engine,
	}, nil
}

func (p *Pipeline) strategy() cluster.Strategy {
	if p.cfg.Cluster.Strategy == "tfidf" {
		return cluster.NewTFIDFStrategy()
	}
	return cluster.NewEmbeddingStrategy(p.embedder)
}

// clusterConfig adjusts thresholds for the active strategy. The TF-IDF
// strategy uses a single threshold: setting base == fallback makes the
// lexical fallback branch a no-op.
func (p *Pipeline) clusterConfig() config.Cluster {
	cc := p.cfg.Cluster
	if cc.Strategy == "tfidf" {
		t := cc.TFIDFThreshold
		if t == 0 {
			t = 0.6
		}
		cc.BaseThreshold = t
		cc.FallbackThreshold = t
	}
	return cc
}

// Snapshot is one build's worth of state: the article set, the stories
// partitioning it, the enriched stories, and the query index over them.
// Snapshots are read-only after Build returns.
type Snapshot struct {
	Articles map[string]*model.Article
	Stories  []*model.Story
	Enriched []*model.EnrichedStory

	engine *query.Engine
}

// Search runs a ranked query over the snapshot.
func (s *Snapshot) Search(ctx context.Context, q string, topK int, minScore float64) ([]model.QueryResult, error) {
	return s.engine.Search(ctx, q, topK, minScore)
}

// SymbolMatch pairs a story with its maximum confidence for one symbol.
type SymbolMatch struct {
	MaxConfidence float64              `json:"max_confidence"`
	Story         *model.EnrichedStory `json:"story"`
}

// StoriesForSymbol returns stories impacting the given symbol with
// confidence at least minConfidence, sorted by confidence descending.
func (s *Snapshot) StoriesForSymbol(symbol string, minConfidence float64) []SymbolMatch {
	var matches []SymbolMatch
	for _, story := range s.Enriched {
		conf := story.MaxConfidence(symbol)
		if conf > 0 && conf >= minConfidence {
			matches = append(matches, SymbolMatch{MaxConfidence: conf, Story: story})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].MaxConfidence > matches[j].MaxConfidence })
	return matches
}

// Alert flags a story considered important and why.
type Alert struct {
	Level  string               `json:"level"`
	Reason string               `json:"reason"`
	Story  *model.EnrichedStory `json:"story"`
}

// Alerts returns stories with any impacted stock at or above
// minConfidence, or with a regulatory impact.
func (s *Snapshot) Alerts(minConfidence float64) []Alert {
	var alerts []Alert
	for _, story := range s.Enriched {
		maxConf := 0.0
		hasRegulatory := false
		for _, imp := range story.Impacted {
			if imp.Confidence > maxConf {
				maxConf = imp.Confidence
			}
			if imp.HasType(model.ImpactRegulatory) {
				hasRegulatory = true
			}
		}
		if maxConf < minConfidence && !hasRegulatory {
			continue
		}

		level := "medium"
		if maxConf >= minConfidence {
			level = "high"
		}
		var reasons []string
		if maxConf >= minConfidence {
			reasons = append(reasons, fmt.Sprintf("max confidence >= %.2f", minConfidence))
		}
		if hasRegulatory {
			reasons = append(reasons, "regulatory impact present")
		}
		alerts = append(alerts, Alert{
			Level:  level,
			Reason: strings.Join(reasons, ", "),
			Story:  story,
		})
	}
	return alerts
}
