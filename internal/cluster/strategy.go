package cluster

import (
	"context"
	"strings"

	"github.com/finwire/newsintel/internal/model"
	"github.com/finwire/newsintel/internal/nlp"
)

// Strategy computes one similarity score per candidate story for a new
// article text. Strategies that operate on cached vectors also return the
// embedding to store on a newly created story; corpus-relative strategies
// return nil and are re-derived on every comparison.
type Strategy interface {
	Scores(ctx context.Context, stories []*model.Story, text string) (scores []float64, embedding []float64, err error)
}

// EmbeddingStrategy scores articles against the cached representative
// vectors of existing stories using an external embedding capability.
type EmbeddingStrategy struct {
	embedder nlp.Embedder
}

// NewEmbeddingStrategy creates a strategy backed by the given embedder.
func NewEmbeddingStrategy(embedder nlp.Embedder) *EmbeddingStrategy {
	return &EmbeddingStrategy{embedder: embedder}
}

// Scores embeds the article text once and compares it to each story's
// cached vector. Empty text is never embedded: all scores stay zero, so
// the article always opens a new story.
func (s *EmbeddingStrategy) Scores(ctx context.Context, stories []*model.Story, text string) ([]float64, []float64, error) {
	scores := make([]float64, len(stories))
	if strings.TrimSpace(text) == "" {
		return scores, nil, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, nil, err
	}
	vec := vecs[0]

	for i, story := range stories {
		scores[i] = nlp.Cosine(vec, story.Embedding)
	}
	return scores, vec, nil
}

// TFIDFStrategy is a corpus-relative lexical alternative: all current
// story texts plus the new article are vectorized jointly and compared by
// cosine similarity in that joint space. No external capability, but the
// vector space is re-derived per article.
type TFIDFStrategy struct{}

// NewTFIDFStrategy creates the corpus-relative lexical strategy.
func NewTFIDFStrategy() *TFIDFStrategy {
	return &TFIDFStrategy{}
}

// Scores fits a TF-IDF model over story texts plus the article text and
// scores the article against each story. No embedding is cached.
func (s *TFIDFStrategy) Scores(_ context.Context, stories []*model.Story, text string) ([]float64, []float64, error) {
	scores := make([]float64, len(stories))
	if len(stories) == 0 || strings.TrimSpace(text) == "" {
		return scores, nil, nil
	}

	docs := make([]string, 0, len(stories)+1)
	for _, story := range stories {
		docs = append(docs, storyText(story))
	}
	docs = append(docs, text)

	vectors := fitTFIDF(docs)
	article := vectors[len(vectors)-1]
	for i := range stories {
		scores[i] = dotSparse(vectors[i], article)
	}
	return scores, nil, nil
}

// storyText mirrors the article text representation: title, summary, and
// accumulated tags all contribute lexical evidence.
func storyText(s *model.Story) string {
	parts := []string{s.Title}
	if s.Summary != "" {
		parts = append(parts, s.Summary)
	}
	for _, set := range [][]string{s.Sectors, s.Regulators, s.Tickers} {
		if len(set) > 0 {
			parts = append(parts, strings.Join(set, " "))
		}
	}
	return strings.Join(parts, " ")
}
