// Package nlp provides the language capabilities consumed by the engines:
// text embeddings, entity extraction, and sentiment scoring. The engines
// depend only on the interfaces here, never on a concrete provider.
package nlp

import (
	"context"
	"math"
)

// Embedder produces fixed-length normalized vectors for texts. Vectors are
// comparable only to other vectors from the same Embedder instance.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Entities holds the canonical entity mentions extracted from a text.
type Entities struct {
	Companies  []string
	Sectors    []string
	Regulators []string
	Tickers    []string
}

// Empty reports whether no entities of any kind were detected.
func (e Entities) Empty() bool {
	return len(e.Companies) == 0 && len(e.Sectors) == 0 &&
		len(e.Regulators) == 0 && len(e.Tickers) == 0
}

// EntityExtractor recognizes companies, sectors, regulators, and ticker
// symbols in free text, and resolves company names to tickers.
type EntityExtractor interface {
	Extract(text string) Entities
	// CompanyTickers maps canonical company names to ticker symbols,
	// omitting companies with no known ticker.
	CompanyTickers(companies []string) map[string]string
}

// SentimentScorer returns a compound sentiment score in [-1, 1] for a text.
type SentimentScorer interface {
	Compound(text string) float64
}

// Cosine returns the cosine similarity of two vectors. For normalized
// vectors this is their dot product. Mismatched or empty vectors score
// zero, so an article with no usable text never matches anything.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
