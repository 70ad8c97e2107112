package impact

import (
	"reflect"
	"strings"
	"testing"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/model"
	"github.com/finwire/newsintel/internal/nlp"
)

// mockExtractor recognizes a fixed vocabulary regardless of context.
type mockExtractor struct {
	companies  map[string]string // substring -> ticker
	sectors    map[string]string // substring -> sector
	regulators map[string]string // substring -> regulator
}

func (m *mockExtractor) Extract(text string) nlp.Entities {
	lower := strings.ToLower(text)
	var out nlp.Entities
	for needle := range m.companies {
		if strings.Contains(lower, strings.ToLower(needle)) {
			out.Companies = append(out.Companies, needle)
		}
	}
	for needle, sector := range m.sectors {
		if strings.Contains(lower, strings.ToLower(needle)) {
			out.Sectors = append(out.Sectors, sector)
		}
	}
	for needle, reg := range m.regulators {
		if strings.Contains(lower, strings.ToLower(needle)) {
			out.Regulators = append(out.Regulators, reg)
		}
	}
	return out
}

func (m *mockExtractor) CompanyTickers(companies []string) map[string]string {
	out := make(map[string]string)
	for _, c := range companies {
		if t, ok := m.companies[c]; ok {
			out[c] = t
		}
	}
	return out
}

// mockSentiment returns a fixed compound score.
type mockSentiment struct{ score float64 }

func (m *mockSentiment) Compound(string) float64 { return m.score }

func newTestExtractor() *mockExtractor {
	return &mockExtractor{
		companies: map[string]string{
			"Infosys":   "INFY",
			"HDFC Bank": "HDFCBANK",
		},
		sectors: map[string]string{
			"IT services": "IT",
			"banking":     "Banking",
		},
		regulators: map[string]string{
			"RBI": "RBI",
		},
	}
}

func testImpactConfig() config.Impact {
	return config.Impact{
		DirectConfidence:     1.0,
		SectorConfidence:     0.7,
		RegulatoryConfidence: 0.7,
		SentimentPositive:    0.05,
		SentimentNegative:    -0.05,
		SummaryLength:        280,
		SectorTickers: map[string][]string{
			"Banking": {"HDFCBANK", "ICICIBANK"},
			"IT":      {"INFY"},
		},
		RegulatorTickers: map[string][]string{
			"RBI": {"HDFCBANK", "ICICIBANK"},
		},
		RegulatorSpillover: map[string][]string{
			"RBI": {"IT"},
		},
	}
}

func storyWith(title string, articleIDs ...string) *model.Story {
	return &model.Story{ID: "s1", Title: title, ArticleIDs: articleIDs}
}

func findImpact(t *testing.T, impacted []model.ImpactedEntity, symbol string) model.ImpactedEntity {
	t.Helper()
	for _, e := range impacted {
		if e.Symbol == symbol {
			return e
		}
	}
	t.Fatalf("symbol %s not in impacted set %v", symbol, impacted)
	return model.ImpactedEntity{}
}

func TestDirectMentionBeatsSectorConfidence(t *testing.T) {
	// Infosys is named directly and also belongs to the IT sector. The
	// merged record keeps confidence 1.0 with both type tags.
	m := NewMapper(newTestExtractor(), &mockSentiment{}, testImpactConfig())

	articles := map[string]*model.Article{
		"a1": {ID: "a1", Title: "Infosys wins large IT services deal", Body: "Infosys announced a major IT services contract."},
	}
	enriched := m.MapStory(storyWith("Infosys wins large IT services deal", "a1"), articles)

	infy := findImpact(t, enriched.Impacted, "INFY")
	if infy.Confidence != 1.0 {
		t.Errorf("INFY confidence = %v, want 1.0", infy.Confidence)
	}
	want := []string{model.ImpactDirect, model.ImpactSector}
	if !reflect.DeepEqual(infy.ImpactTypes, want) {
		t.Errorf("INFY impact types = %v, want %v", infy.ImpactTypes, want)
	}
}

func TestRegulatorFansOutWithSpillover(t *testing.T) {
	// An RBI story impacts regulated banks at regulatory confidence and
	// spills over into the IT sector.
	m := NewMapper(newTestExtractor(), &mockSentiment{}, testImpactConfig())

	articles := map[string]*model.Article{
		"a1": {ID: "a1", Title: "RBI holds repo rate steady", Body: "The RBI kept rates unchanged."},
	}
	enriched := m.MapStory(storyWith("RBI holds repo rate steady", "a1"), articles)

	for _, symbol := range []string{"HDFCBANK", "ICICIBANK"} {
		e := findImpact(t, enriched.Impacted, symbol)
		if e.Confidence != 0.7 {
			t.Errorf("%s confidence = %v, want 0.7", symbol, e.Confidence)
		}
		if !e.HasType(model.ImpactRegulatory) {
			t.Errorf("%s missing regulatory tag, got %v", symbol, e.ImpactTypes)
		}
	}

	infy := findImpact(t, enriched.Impacted, "INFY")
	if infy.Confidence != 0.7 {
		t.Errorf("spillover INFY confidence = %v, want 0.7", infy.Confidence)
	}
	if !reflect.DeepEqual(infy.ImpactTypes, []string{model.ImpactSector}) {
		t.Errorf("spillover INFY types = %v, want [sector]", infy.ImpactTypes)
	}
}

func TestEntitiesSortedAndDeterministic(t *testing.T) {
	m := NewMapper(newTestExtractor(), &mockSentiment{}, testImpactConfig())

	articles := map[string]*model.Article{
		"a1": {ID: "a1", Title: "RBI tightens banking norms, Infosys unaffected", Body: "RBI and banking and Infosys."},
	}
	story := storyWith("RBI tightens banking norms, Infosys unaffected", "a1")

	first := m.MapStory(story, articles)
	second := m.MapStory(story, articles)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("MapStory is not deterministic for identical input")
	}
	for i := 1; i < len(first.Impacted); i++ {
		if first.Impacted[i-1].Symbol >= first.Impacted[i].Symbol {
			t.Fatalf("impacted not sorted by symbol: %v", first.Impacted)
		}
	}
}

func TestNoEntitiesYieldsEmptyImpact(t *testing.T) {
	m := NewMapper(newTestExtractor(), &mockSentiment{}, testImpactConfig())

	articles := map[string]*model.Article{
		"a1": {ID: "a1", Title: "Weather delays harvest in the north", Body: "Rain continued."},
	}
	enriched := m.MapStory(storyWith("Weather delays harvest in the north", "a1"), articles)

	if len(enriched.Impacted) != 0 {
		t.Errorf("expected no impacted entities, got %v", enriched.Impacted)
	}
	if enriched.Sentiment == "" {
		t.Error("sentiment label should always be set")
	}
}

func TestSentimentClassification(t *testing.T) {
	cases := []struct {
		compound float64
		want     string
	}{
		{0.6, "positive"},
		{0.05, "positive"},
		{0.049, "neutral"},
		{0.0, "neutral"},
		{-0.049, "neutral"},
		{-0.05, "negative"},
		{-0.8, "negative"},
	}
	articles := map[string]*model.Article{
		"a1": {ID: "a1", Title: "Infosys results", Body: "Numbers are out."},
	}
	for _, tc := range cases {
		m := NewMapper(newTestExtractor(), &mockSentiment{score: tc.compound}, testImpactConfig())
		enriched := m.MapStory(storyWith("Infosys results", "a1"), articles)
		if enriched.Sentiment != tc.want {
			t.Errorf("compound %v: sentiment = %q, want %q", tc.compound, enriched.Sentiment, tc.want)
		}
		if enriched.SentimentScore != tc.compound {
			t.Errorf("compound %v: score = %v", tc.compound, enriched.SentimentScore)
		}
	}
}

func TestSummaryBoundedPrefix(t *testing.T) {
	cfg := testImpactConfig()
	cfg.SummaryLength = 20
	m := NewMapper(newTestExtractor(), &mockSentiment{}, cfg)

	long := strings.Repeat("banking news ", 10)
	articles := map[string]*model.Article{
		"a1": {ID: "a1", Title: "Banking update", Body: long},
	}
	enriched := m.MapStory(storyWith("Banking update", "a1"), articles)

	if len(enriched.Summary) != 20 {
		t.Errorf("summary length = %d, want 20", len(enriched.Summary))
	}
	if !strings.HasPrefix(long, enriched.Summary) {
		t.Errorf("summary %q is not a prefix of the first article body", enriched.Summary)
	}
}

func TestSignalTableMergeOrderIndependent(t *testing.T) {
	a := newSignalTable()
	a.add("INFY", model.ImpactDirect, 1.0)
	a.add("INFY", model.ImpactSector, 0.7)

	b := newSignalTable()
	b.add("INFY", model.ImpactSector, 0.7)
	b.add("INFY", model.ImpactDirect, 1.0)

	if !reflect.DeepEqual(a.entities(), b.entities()) {
		t.Errorf("merge is order dependent: %v vs %v", a.entities(), b.entities())
	}
	got := a.entities()[0]
	if got.Confidence != 1.0 {
		t.Errorf("merged confidence = %v, want max 1.0", got.Confidence)
	}
}
