// Package digest renders a markdown briefing of the current snapshot:
// every story with its impacted symbols, sentiment, and sources.
package digest

import (
	"fmt"
	"strings"

	"github.com/finwire/newsintel/internal/model"
)

// Compose renders the enriched stories as a markdown document. Output is
// deterministic for a given snapshot.
func Compose(enriched []*model.EnrichedStory) string {
	var b strings.Builder

	b.WriteString("# Market News Digest\n\n")
	if len(enriched) == 0 {
		b.WriteString("No stories indexed yet. Ingest articles and rebuild.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d stories tracked.\n\n", len(enriched))

	for _, story := range enriched {
		fmt.Fprintf(&b, "## %s\n\n", story.Title)

		var meta []string
		if len(story.Sectors) > 0 {
			meta = append(meta, "Sectors: "+strings.Join(story.Sectors, ", "))
		}
		if len(story.Regulators) > 0 {
			meta = append(meta, "Regulators: "+strings.Join(story.Regulators, ", "))
		}
		if len(story.Sources) > 0 {
			meta = append(meta, "Sources: "+strings.Join(story.Sources, ", "))
		}
		if story.Sentiment != "" {
			meta = append(meta, fmt.Sprintf("Sentiment: %s (%.2f)", story.Sentiment, story.SentimentScore))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
		}

		if story.Summary != "" {
			b.WriteString(story.Summary)
			b.WriteString("\n\n")
		}

		if len(story.Impacted) > 0 {
			b.WriteString("Impacted stocks:\n\n")
			for _, imp := range story.Impacted {
				fmt.Fprintf(&b, "- **%s**: confidence %.2f (%s)\n",
					imp.Symbol, imp.Confidence, strings.Join(imp.ImpactTypes, ", "))
			}
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%d article(s) in this story.\n\n", len(story.ArticleIDs))
	}

	return b.String()
}
