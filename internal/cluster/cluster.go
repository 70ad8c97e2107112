// Package cluster groups incoming articles into stories. Each article is
// compared against every existing story through a pluggable similarity
// strategy; a dual-threshold rule decides between merging and creating a
// new story.
package cluster

import (
	"context"
	"fmt"
	"strings"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/model"
)

// Default thresholds for the embedding strategy. Short headlines can have
// deceptively low embedding similarity, so a lexical fallback corrects for
// near-duplicate phrasing with a weak semantic signal.
const (
	DefaultBaseThreshold     = 0.78
	DefaultFallbackThreshold = 0.70
	DefaultOverlapThreshold  = 0.30
	DefaultSnippetLength     = 500
)

const summaryLength = 280

// Clusterer assigns articles to stories one at a time, maintaining the
// story set in insertion order. It is not safe for concurrent use; the
// caller serializes Process calls.
type Clusterer struct {
	strategy Strategy

	baseThreshold     float64
	fallbackThreshold float64
	overlapThreshold  float64
	snippetLength     int

	stories []*model.Story
}

// New creates a Clusterer with the given strategy and thresholds from cfg.
// Zero thresholds fall back to the defaults.
func New(strategy Strategy, cfg config.Cluster) *Clusterer {
	c := &Clusterer{
		strategy:          strategy,
		baseThreshold:     cfg.BaseThreshold,
		fallbackThreshold: cfg.FallbackThreshold,
		overlapThreshold:  cfg.OverlapThreshold,
		snippetLength:     cfg.SnippetLength,
	}
	if c.baseThreshold == 0 {
		c.baseThreshold = DefaultBaseThreshold
	}
	if c.fallbackThreshold == 0 {
		c.fallbackThreshold = DefaultFallbackThreshold
	}
	if c.overlapThreshold == 0 {
		c.overlapThreshold = DefaultOverlapThreshold
	}
	if c.snippetLength == 0 {
		c.snippetLength = DefaultSnippetLength
	}
	return c
}

// Process assigns the article to a story and returns it. The story is
// either an existing one the article merged into or a freshly created one.
func (c *Clusterer) Process(ctx context.Context, article *model.Article) (*model.Story, error) {
	text := c.articleText(article)

	scores, embedding, err := c.strategy.Scores(ctx, c.stories, text)
	if err != nil {
		return nil, fmt.Errorf("scoring article %s: %w", article.ID, err)
	}

	if len(c.stories) == 0 {
		return c.create(article, embedding), nil
	}

	// Best candidate, first-encountered wins on exact ties.
	bestIdx := -1
	bestSim := 0.0
	for i, s := range scores {
		if bestIdx == -1 || s > bestSim {
			bestIdx = i
			bestSim = s
		}
	}

	best := c.stories[bestIdx]
	overlap := titleOverlap(article.Title, best.Title)

	if bestSim >= c.baseThreshold ||
		(bestSim >= c.fallbackThreshold && overlap >= c.overlapThreshold) {
		c.merge(best, article)
		return best, nil
	}

	return c.create(article, embedding), nil
}

// Stories returns all stories in insertion order.
func (c *Clusterer) Stories() []*model.Story {
	return c.stories
}

func (c *Clusterer) create(article *model.Article, embedding []float64) *model.Story {
	story := &model.Story{
		ID:         model.NewID(),
		Title:      article.Title,
		Summary:    snippet(article.Body, summaryLength),
		ArticleIDs: []string{article.ID},
		Sectors:    dedupe(article.Sectors),
		Regulators: dedupe(article.Regulators),
		Tickers:    dedupe(article.Tickers),
		Embedding:  embedding,
	}
	if article.Source != "" {
		story.Sources = []string{article.Source}
	}
	c.stories = append(c.stories, story)
	return story
}

// merge folds the article into the story. The representative embedding is
// left untouched: the first article stays the cluster anchor.
func (c *Clusterer) merge(story *model.Story, article *model.Article) {
	found := false
	for _, id := range story.ArticleIDs {
		if id == article.ID {
			found = true
			break
		}
	}
	if !found {
		story.ArticleIDs = append(story.ArticleIDs, article.ID)
	}

	story.Sectors = union(story.Sectors, article.Sectors)
	story.Regulators = union(story.Regulators, article.Regulators)
	story.Tickers = union(story.Tickers, article.Tickers)
	if article.Source != "" {
		story.Sources = union(story.Sources, []string{article.Source})
	}
}

// articleText builds the text representation used for similarity: the
// title plus a bounded body snippet.
func (c *Clusterer) articleText(article *model.Article) string {
	parts := []string{article.Title}
	if body := snippet(article.Body, c.snippetLength); body != "" {
		parts = append(parts, body)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// titleOverlap computes the Jaccard overlap of lowercase word tokens.
func titleOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,!?:;\"'()-[]")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

func snippet(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func dedupe(vals []string) []string {
	return union(nil, vals)
}

// union appends new values not already present, preserving first-appearance
// order.
func union(existing, vals []string) []string {
	for _, v := range vals {
		present := false
		for _, e := range existing {
			if e == v {
				present = true
				break
			}
		}
		if !present {
			existing = append(existing, v)
		}
	}
	return existing
}
