// Package ingest turns external news sources (JSONL datasets and RSS
// feeds) into articles ready for archiving and clustering.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/finwire/newsintel/internal/model"
)

// datasetRecord is one line of a JSONL dataset file.
type datasetRecord struct {
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Tickers     []string `json:"tickers"`
	Sectors     []string `json:"sectors"`
	Regulators  []string `json:"regulators"`
}

// LoadDataset reads articles from a JSONL file, one object per line.
// Blank lines are skipped; a malformed line aborts with its line number.
func LoadDataset(path string) ([]*model.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var articles []*model.Article
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec datasetRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parsing dataset line %d: %w", lineNo, err)
		}

		article := &model.Article{
			ID:         model.NewID(),
			Source:     rec.Source,
			Title:      rec.Title,
			Body:       rec.Body,
			URL:        rec.URL,
			Tickers:    rec.Tickers,
			Sectors:    rec.Sectors,
			Regulators: rec.Regulators,
		}
		if t, ok := parseTime(rec.PublishedAt); ok {
			article.PublishedAt = &t
		}
		articles = append(articles, article)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return articles, nil
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
