// Package impact fuses per-story signals (direct company mentions, sector
// membership, regulator linkage) into per-symbol confidence scores.
package impact

import (
	"sort"
	"strings"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/model"
	"github.com/finwire/newsintel/internal/nlp"
)

// Default signal confidences.
const (
	DefaultDirectConfidence     = 1.0
	DefaultSectorConfidence     = 0.7
	DefaultRegulatoryConfidence = 0.7

	DefaultSentimentPositive = 0.05
	DefaultSentimentNegative = -0.05

	DefaultSummaryLength = 280
)

// Per-article body contribution to the aggregate text. Full bodies are not
// needed for entity detection and would slow sentiment scoring.
const aggregateBodyLimit = 500

// Mapper enriches stories with impacted-entity records. It is stateless
// and deterministic: the same (story, articles) input always produces the
// same EnrichedStory.
type Mapper struct {
	extractor nlp.EntityExtractor
	sentiment nlp.SentimentScorer
	cfg       config.Impact
}

// NewMapper creates an impact mapper. Zero confidences and thresholds in
// cfg fall back to the defaults.
func NewMapper(extractor nlp.EntityExtractor, sentiment nlp.SentimentScorer, cfg config.Impact) *Mapper {
	if cfg.DirectConfidence == 0 {
		cfg.DirectConfidence = DefaultDirectConfidence
	}
	if cfg.SectorConfidence == 0 {
		cfg.SectorConfidence = DefaultSectorConfidence
	}
	if cfg.RegulatoryConfidence == 0 {
		cfg.RegulatoryConfidence = DefaultRegulatoryConfidence
	}
	if cfg.SentimentPositive == 0 {
		cfg.SentimentPositive = DefaultSentimentPositive
	}
	if cfg.SentimentNegative == 0 {
		cfg.SentimentNegative = DefaultSentimentNegative
	}
	if cfg.SummaryLength == 0 {
		cfg.SummaryLength = DefaultSummaryLength
	}
	return &Mapper{extractor: extractor, sentiment: sentiment, cfg: cfg}
}

// MapStory enriches a story with impacted entities, sentiment, and a
// derived summary. A story with no extractable entities yields empty
// impact lists, never an error.
func (m *Mapper) MapStory(story *model.Story, articles map[string]*model.Article) *model.EnrichedStory {
	text := m.aggregateText(story, articles)
	entities := m.extractor.Extract(text)

	// Resolve company mentions to tickers, union with raw mentions and
	// the story's own pre-tagged tickers.
	direct := make(map[string]bool)
	for _, ticker := range m.extractor.CompanyTickers(entities.Companies) {
		direct[ticker] = true
	}
	for _, ticker := range entities.Tickers {
		direct[ticker] = true
	}
	for _, ticker := range story.Tickers {
		direct[ticker] = true
	}

	sectors := mergeSorted(story.Sectors, entities.Sectors)
	regulators := mergeSorted(story.Regulators, entities.Regulators)

	table := newSignalTable()
	for symbol := range direct {
		table.add(symbol, model.ImpactDirect, m.cfg.DirectConfidence)
	}
	for _, sector := range sectors {
		for _, symbol := range m.cfg.SectorTickers[sector] {
			table.add(symbol, model.ImpactSector, m.cfg.SectorConfidence)
		}
	}
	for _, regulator := range regulators {
		for _, symbol := range m.cfg.RegulatorTickers[regulator] {
			table.add(symbol, model.ImpactRegulatory, m.cfg.RegulatoryConfidence)
		}
		// Macro spillover: a regulator decision can move sectors it does
		// not directly regulate (rates vs. rate-sensitive exporters).
		for _, sector := range m.cfg.RegulatorSpillover[regulator] {
			for _, symbol := range m.cfg.SectorTickers[sector] {
				table.add(symbol, model.ImpactSector, m.cfg.SectorConfidence)
			}
		}
	}

	compound := m.sentiment.Compound(text)
	label := "neutral"
	switch {
	case compound >= m.cfg.SentimentPositive:
		label = "positive"
	case compound <= m.cfg.SentimentNegative:
		label = "negative"
	}

	tickers := make(map[string]bool, len(direct))
	for t := range direct {
		tickers[t] = true
	}

	enriched := &model.EnrichedStory{
		Story: model.Story{
			ID:         story.ID,
			Title:      story.Title,
			Summary:    m.summary(story, articles),
			ArticleIDs: append([]string(nil), story.ArticleIDs...),
			Sectors:    sectors,
			Regulators: regulators,
			Tickers:    sortedKeys(tickers),
			Sources:    mergeSorted(nil, story.Sources),
			Embedding:  story.Embedding,
		},
		Impacted:       table.entities(),
		Sentiment:      label,
		SentimentScore: compound,
	}
	return enriched
}

// aggregateText concatenates the story title/summary with every member
// article's title and a bounded body prefix.
func (m *Mapper) aggregateText(story *model.Story, articles map[string]*model.Article) string {
	parts := []string{story.Title}
	if story.Summary != "" {
		parts = append(parts, story.Summary)
	}
	for _, id := range story.ArticleIDs {
		art, ok := articles[id]
		if !ok {
			continue
		}
		if art.Title != "" {
			parts = append(parts, art.Title)
		}
		if art.Body != "" {
			parts = append(parts, prefix(art.Body, aggregateBodyLimit))
		}
	}
	return strings.Join(parts, " ")
}

// summary derives the display summary: the bounded prefix of the first
// member article's text, unless the story already carries a richer one.
func (m *Mapper) summary(story *model.Story, articles map[string]*model.Article) string {
	var derived string
	for _, id := range story.ArticleIDs {
		art, ok := articles[id]
		if !ok || art.Body == "" {
			continue
		}
		derived = prefix(art.Body, m.cfg.SummaryLength)
		break
	}
	if len(story.Summary) > len(derived) {
		return story.Summary
	}
	return derived
}

// signalTable merges impact signals per symbol. Merging keeps the maximum
// confidence and the union of type tags, so applying signals in any order
// yields the same result.
type signalTable struct {
	bySymbol map[string]*model.ImpactedEntity
}

func newSignalTable() *signalTable {
	return &signalTable{bySymbol: make(map[string]*model.ImpactedEntity)}
}

func (t *signalTable) add(symbol, impactType string, confidence float64) {
	e, ok := t.bySymbol[symbol]
	if !ok {
		t.bySymbol[symbol] = &model.ImpactedEntity{
			Symbol:      symbol,
			Confidence:  confidence,
			ImpactTypes: []string{impactType},
		}
		return
	}
	if confidence > e.Confidence {
		e.Confidence = confidence
	}
	if !e.HasType(impactType) {
		e.ImpactTypes = append(e.ImpactTypes, impactType)
	}
}

// entities returns the merged records sorted by symbol, with sorted type
// tags, so repeated runs are bit-identical.
func (t *signalTable) entities() []model.ImpactedEntity {
	out := make([]model.ImpactedEntity, 0, len(t.bySymbol))
	for _, e := range t.bySymbol {
		sort.Strings(e.ImpactTypes)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func prefix(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func mergeSorted(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		set[v] = true
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
