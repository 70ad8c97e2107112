package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finwire/newsintel/internal/model"
)

// InsertArticle archives an article. Returns false without error when the
// article is already present (same id or URL).
func (db *DB) InsertArticle(a *model.Article) (bool, error) {
	tickers, _ := json.Marshal(a.Tickers)
	sectors, _ := json.Marshal(a.Sectors)
	regulators, _ := json.Marshal(a.Regulators)

	var published *string
	if a.PublishedAt != nil {
		s := a.PublishedAt.UTC().Format(time.RFC3339)
		published = &s
	}

	_, err := db.conn.Exec(
		`INSERT INTO articles (id, url, source, title, body, published_at, tickers, sectors, regulators)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, nullable(a.URL), nullable(a.Source), a.Title, a.Body, published,
		string(tickers), string(sectors), string(regulators),
	)
	if err != nil {
		// Duplicate id/URL constraint
		return false, nil //nolint: nilerr
	}
	return true, nil
}

// GetAllArticles returns every archived article in collection order.
func (db *DB) GetAllArticles() ([]*model.Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, url, source, title, body, published_at, tickers, sectors, regulators
		FROM articles ORDER BY collected_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// CountArticles returns the number of archived articles.
func (db *DB) CountArticles() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}

// CountSources returns the number of distinct non-empty source labels.
func (db *DB) CountSources() (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(DISTINCT source) FROM articles WHERE source IS NOT NULL AND source != ''",
	).Scan(&n)
	return n, err
}

func scanArticles(rows *sql.Rows) ([]*model.Article, error) {
	var articles []*model.Article
	for rows.Next() {
		var (
			a          model.Article
			url        sql.NullString
			source     sql.NullString
			published  sql.NullString
			tickers    sql.NullString
			sectors    sql.NullString
			regulators sql.NullString
		)
		if err := rows.Scan(&a.ID, &url, &source, &a.Title, &a.Body, &published,
			&tickers, &sectors, &regulators); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.URL = url.String
		a.Source = source.String
		if published.Valid && published.String != "" {
			if t, err := time.Parse(time.RFC3339, published.String); err == nil {
				a.PublishedAt = &t
			}
		}
		a.Tickers = decodeList(tickers)
		a.Sectors = decodeList(sectors)
		a.Regulators = decodeList(regulators)
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

func decodeList(s sql.NullString) []string {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
