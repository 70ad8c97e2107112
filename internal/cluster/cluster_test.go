package cluster

import (
	"context"
	"testing"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/model"
)

// mockEmbedder returns a fixed vector per text, keyed by exact string.
type mockEmbedder struct {
	vectors map[string][]float64
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, ok := m.vectors[t]
		if !ok {
			vec = []float64{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func testConfig() config.Cluster {
	return config.Cluster{
		BaseThreshold:     0.78,
		FallbackThreshold: 0.70,
		OverlapThreshold:  0.30,
		SnippetLength:     500,
	}
}

func article(id, title, body string) *model.Article {
	return &model.Article{ID: id, Title: title, Body: body}
}

func TestFirstArticleCreatesStory(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{}}
	c := New(NewEmbeddingStrategy(emb), testConfig())

	story, err := c.Process(context.Background(), article("a1", "HDFC Bank raises lending rate", "Rates up."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if story == nil || len(story.ArticleIDs) != 1 || story.ArticleIDs[0] != "a1" {
		t.Fatalf("expected new story with member a1, got %+v", story)
	}
	if len(c.Stories()) != 1 {
		t.Errorf("expected 1 story, got %d", len(c.Stories()))
	}
}

func TestNearDuplicateTitlesMerge(t *testing.T) {
	// Near-identical headlines: high similarity clears the base threshold.
	emb := &mockEmbedder{vectors: map[string][]float64{
		"HDFC Bank raises lending rate Rates up.":     {1, 0, 0},
		"HDFC Bank increases lending rates Rates up.": {0.99, 0.14, 0},
	}}
	c := New(NewEmbeddingStrategy(emb), testConfig())

	ctx := context.Background()
	first, _ := c.Process(ctx, article("a1", "HDFC Bank raises lending rate", "Rates up."))
	second, err := c.Process(ctx, article("a2", "HDFC Bank increases lending rates", "Rates up."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected both articles in one story, got %s and %s", first.ID, second.ID)
	}
	if len(c.Stories()) != 1 {
		t.Fatalf("expected 1 story, got %d", len(c.Stories()))
	}
	if got := c.Stories()[0].ArticleIDs; len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Errorf("expected members [a1 a2], got %v", got)
	}
}

func TestLexicalFallbackRescuesWeakSimilarity(t *testing.T) {
	// Similarity between fallback and base: the decision hinges on the
	// title token overlap.
	cases := []struct {
		name       string
		title      string
		wantMerged bool
	}{
		{"high overlap merges", "HDFC Bank raises lending rate again", true},
		{"low overlap stays separate", "Quarterly results preview for tech majors", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emb := &mockEmbedder{vectors: map[string][]float64{
				"HDFC Bank raises lending rate body": {1, 0, 0},
				tc.title + " body":                   {0.72, 0.694, 0},
			}}
			c := New(NewEmbeddingStrategy(emb), testConfig())

			ctx := context.Background()
			first, _ := c.Process(ctx, article("a1", "HDFC Bank raises lending rate", "body"))
			second, err := c.Process(ctx, article("a2", tc.title, "body"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			merged := first.ID == second.ID
			if merged != tc.wantMerged {
				t.Errorf("merged = %v, want %v", merged, tc.wantMerged)
			}
		})
	}
}

func TestEmptyTextAlwaysNewStory(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{}}
	c := New(NewEmbeddingStrategy(emb), testConfig())

	ctx := context.Background()
	c.Process(ctx, article("a1", "Some headline", "content"))
	s2, err := c.Process(ctx, article("a2", "", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s3, _ := c.Process(ctx, article("a3", "", ""))

	if s2.ID == s3.ID {
		t.Error("empty articles must not cluster together")
	}
	if len(c.Stories()) != 3 {
		t.Errorf("expected 3 stories, got %d", len(c.Stories()))
	}
}

func TestMergeUnionsTagsAndKeepsAnchor(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{
		"Banks rally on rate cut hopes first":  {1, 0, 0},
		"Banks rally on rate cut hopes second": {1, 0, 0},
	}}
	c := New(NewEmbeddingStrategy(emb), testConfig())

	ctx := context.Background()
	a1 := article("a1", "Banks rally on rate cut hopes", "first")
	a1.Sectors = []string{"Banking"}
	a1.Source = "MockWire"
	first, _ := c.Process(ctx, a1)

	anchor := append([]float64(nil), first.Embedding...)

	a2 := article("a2", "Banks rally on rate cut hopes", "second")
	a2.Sectors = []string{"Banking", "Economy"}
	a2.Tickers = []string{"HDFCBANK"}
	a2.Source = "EconomicTimes"
	second, _ := c.Process(ctx, a2)

	if first.ID != second.ID {
		t.Fatal("expected merge into the first story")
	}
	if got := first.Sectors; len(got) != 2 || got[0] != "Banking" || got[1] != "Economy" {
		t.Errorf("expected sectors [Banking Economy], got %v", got)
	}
	if got := first.Tickers; len(got) != 1 || got[0] != "HDFCBANK" {
		t.Errorf("expected tickers [HDFCBANK], got %v", got)
	}
	if got := first.Sources; len(got) != 2 {
		t.Errorf("expected 2 sources, got %v", got)
	}
	for i := range anchor {
		if first.Embedding[i] != anchor[i] {
			t.Fatal("representative embedding must not change on merge")
		}
	}
}

func TestPartitionInvariant(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{
		"alpha one":   {1, 0, 0},
		"alpha two":   {0.95, 0.31, 0},
		"beta one":    {0, 1, 0},
		"gamma one":   {0, 0, 1},
		"alpha three": {0.97, 0.24, 0},
	}}
	c := New(NewEmbeddingStrategy(emb), testConfig())

	ctx := context.Background()
	ids := []string{"a1", "a2", "a3", "a4", "a5"}
	texts := []struct{ title, body string }{
		{"alpha", "one"}, {"alpha", "two"}, {"beta", "one"}, {"gamma", "one"}, {"alpha", "three"},
	}
	for i, id := range ids {
		if _, err := c.Process(ctx, article(id, texts[i].title, texts[i].body)); err != nil {
			t.Fatalf("process %s: %v", id, err)
		}
	}

	seen := make(map[string]int)
	for _, s := range c.Stories() {
		for _, id := range s.ArticleIDs {
			seen[id]++
		}
	}
	if len(seen) != len(ids) {
		t.Fatalf("expected %d article ids across stories, got %d", len(ids), len(seen))
	}
	for _, id := range ids {
		if seen[id] != 1 {
			t.Errorf("article %s appears in %d stories, want exactly 1", id, seen[id])
		}
	}
}

func TestTieBreakKeepsFirstStory(t *testing.T) {
	// Two stories score identically; the first-encountered one wins.
	emb := &mockEmbedder{vectors: map[string][]float64{
		"first story body":  {1, 0, 0},
		"second story body": {1, 0, 0},
		"first match body":  {1, 0, 0},
	}}
	cfg := testConfig()
	cfg.OverlapThreshold = 0.99 // force decisions through the base threshold
	c := New(NewEmbeddingStrategy(emb), cfg)

	ctx := context.Background()
	first, _ := c.Process(ctx, article("a1", "first story", "body"))
	c.stories = append(c.stories, &model.Story{
		ID: "manual", Title: "second story", ArticleIDs: []string{"a2"},
		Embedding: []float64{1, 0, 0},
	})

	got, err := c.Process(ctx, article("a3", "first match", "body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("tie should resolve to the first story, got %s", got.ID)
	}
}

func TestTitleOverlap(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"HDFC Bank raises rates", "HDFC Bank raises rates", 1.0},
		{"HDFC Bank raises rates", "completely different words here", 0.0},
		{"", "anything", 0.0},
	}
	for _, tc := range cases {
		if got := titleOverlap(tc.a, tc.b); got != tc.want {
			t.Errorf("titleOverlap(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}

	// {hdfc bank raises lending rate} vs {hdfc bank increases lending
	// rates}: 3 shared tokens of 7 distinct.
	got := titleOverlap("HDFC Bank raises lending rate", "HDFC Bank increases lending rates")
	if got < 0.30 {
		t.Errorf("near-duplicate headlines should clear the overlap threshold, got %v", got)
	}
}
