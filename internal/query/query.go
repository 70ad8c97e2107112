// Package query ranks enriched stories against free-text queries using
// entity overlap with a semantic-similarity boost.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/model"
	"github.com/finwire/newsintel/internal/nlp"
)

// Default entity-match weights and semantic knobs. A regulator name is a
// strong, low-ambiguity signal, so it outranks a sector match but not a
// direct ticker hit.
const (
	DefaultDirectWeight    = 1.0
	DefaultTickerWeight    = 0.8
	DefaultSectorWeight    = 0.7
	DefaultRegulatorWeight = 0.9

	DefaultSemanticBonus   = 0.2
	DefaultThematicMinimum = 0.3
)

// Engine holds an indexed snapshot of enriched stories and answers ranked
// searches over it. Index replaces the whole snapshot; there is no
// incremental update.
type Engine struct {
	extractor nlp.EntityExtractor
	embedder  nlp.Embedder
	cfg       config.QueryCfg

	stories []*model.EnrichedStory
}

// NewEngine creates a ranking engine. Zero weights in cfg fall back to the
// defaults.
func NewEngine(extractor nlp.EntityExtractor, embedder nlp.Embedder, cfg config.QueryCfg) *Engine {
	if cfg.DirectWeight == 0 {
		cfg.DirectWeight = DefaultDirectWeight
	}
	if cfg.TickerWeight == 0 {
		cfg.TickerWeight = DefaultTickerWeight
	}
	if cfg.SectorWeight == 0 {
		cfg.SectorWeight = DefaultSectorWeight
	}
	if cfg.RegulatorWeight == 0 {
		cfg.RegulatorWeight = DefaultRegulatorWeight
	}
	if cfg.SemanticBonus == 0 {
		cfg.SemanticBonus = DefaultSemanticBonus
	}
	if cfg.ThematicMinimum == 0 {
		cfg.ThematicMinimum = DefaultThematicMinimum
	}
	return &Engine{extractor: extractor, embedder: embedder, cfg: cfg}
}

// Index replaces the queryable story set.
func (e *Engine) Index(stories []*model.EnrichedStory) {
	e.stories = stories
}

// Search returns at most topK stories scoring at least minScore against
// the query, in descending score order. Ties keep index order. Searching
// an empty index or an empty query returns an empty list.
func (e *Engine) Search(ctx context.Context, query string, topK int, minScore float64) ([]model.QueryResult, error) {
	if len(e.stories) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	entities := e.extractor.Extract(query)
	queryTickers := make(map[string]bool)
	for _, ticker := range e.extractor.CompanyTickers(entities.Companies) {
		queryTickers[ticker] = true
	}
	for _, ticker := range entities.Tickers {
		queryTickers[ticker] = true
	}

	sims, err := e.similarities(ctx, query)
	if err != nil {
		return nil, err
	}

	thematic := entities.Empty()
	results := make([]model.QueryResult, 0, len(e.stories))
	for i, story := range e.stories {
		score := e.entityScore(story, queryTickers, entities)

		sim := sims[i]
		if thematic {
			// No entities recognized at all: similarity drives ranking.
			if sim >= e.cfg.ThematicMinimum && sim > score {
				score = sim
			}
		} else {
			score += e.cfg.SemanticBonus * sim
		}

		if score >= minScore {
			results = append(results, model.QueryResult{Story: story, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// entityScore computes the overlap component between the query's entities
// and a story's tags, taking the strongest applicable weight.
func (e *Engine) entityScore(story *model.EnrichedStory, queryTickers map[string]bool, entities nlp.Entities) float64 {
	score := 0.0

	if len(queryTickers) > 0 {
		directHit := false
		anyHit := false
		for _, imp := range story.Impacted {
			if !queryTickers[imp.Symbol] {
				continue
			}
			anyHit = true
			if imp.HasType(model.ImpactDirect) {
				directHit = true
				break
			}
		}
		if directHit {
			score = e.cfg.DirectWeight
		} else if anyHit {
			score = e.cfg.TickerWeight
		}
	}

	if intersects(entities.Sectors, story.Sectors) && e.cfg.SectorWeight > score {
		score = e.cfg.SectorWeight
	}
	if intersects(entities.Regulators, story.Regulators) && e.cfg.RegulatorWeight > score {
		score = e.cfg.RegulatorWeight
	}
	return score
}

// similarities embeds the query once and scores it against every story
// with a cached representative vector. When no story carries a vector
// (TF-IDF clustering mode) the embedder is never invoked.
func (e *Engine) similarities(ctx context.Context, query string) ([]float64, error) {
	sims := make([]float64, len(e.stories))

	hasVectors := false
	for _, s := range e.stories {
		if len(s.Embedding) > 0 {
			hasVectors = true
			break
		}
	}
	if !hasVectors || e.embedder == nil {
		return sims, nil
	}

	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	for i, s := range e.stories {
		sims[i] = nlp.Cosine(vecs[0], s.Embedding)
	}
	return sims, nil
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
