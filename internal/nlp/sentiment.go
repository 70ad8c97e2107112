package nlp

import "github.com/jonreiter/govader"

// VaderScorer scores sentiment with the VADER lexicon. Scoring is pure and
// deterministic; classification thresholds live with the impact engine.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer creates a VADER sentiment scorer.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Compound returns the VADER compound score in [-1, 1]. Empty text is
// neutral.
func (v *VaderScorer) Compound(text string) float64 {
	if text == "" {
		return 0
	}
	return v.analyzer.PolarityScores(text).Compound
}
