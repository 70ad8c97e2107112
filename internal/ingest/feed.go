package ingest

import (
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/model"
)

const defaultMaxPerFeed = 10

// FeedCollector fetches live articles from configured RSS/Atom feeds.
type FeedCollector struct {
	feeds      []config.Feed
	maxPerFeed int
}

// NewFeedCollector creates a collector for the configured feeds.
func NewFeedCollector(src config.Sources) *FeedCollector {
	max := src.MaxPerFeed
	if max <= 0 {
		max = defaultMaxPerFeed
	}
	return &FeedCollector{feeds: src.Feeds, maxPerFeed: max}
}

// CollectAll parses every configured feed and returns the collected
// articles. A failing feed is logged and skipped, never fatal.
func (fc *FeedCollector) CollectAll() []*model.Article {
	parser := gofeed.NewParser()
	var all []*model.Article

	for _, feed := range fc.feeds {
		name := feed.Name
		if name == "" {
			name = extractSourceName(feed.URL)
		}

		articles, err := fc.collectFeed(parser, feed.URL, name)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", feed.URL, err)
			continue
		}
		all = append(all, articles...)
		log.Printf("Collected %d articles from %s", len(articles), name)
	}
	return all
}

func (fc *FeedCollector) collectFeed(parser *gofeed.Parser, feedURL, source string) ([]*model.Article, error) {
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, err
	}

	var articles []*model.Article
	for _, item := range feed.Items {
		if len(articles) >= fc.maxPerFeed {
			break
		}
		article := itemToArticle(item, source)
		if article == nil {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func itemToArticle(item *gofeed.Item, source string) *model.Article {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}

	var body string
	if item.Content != "" {
		body = stripHTML(item.Content)
	} else if item.Description != "" {
		body = stripHTML(item.Description)
	}

	article := &model.Article{
		ID:     model.NewID(),
		Source: source,
		Title:  title,
		Body:   body,
		URL:    itemURL,
	}
	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		article.PublishedAt = &t
	} else if item.UpdatedParsed != nil {
		t := *item.UpdatedParsed
		article.PublishedAt = &t
	}
	return article
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
