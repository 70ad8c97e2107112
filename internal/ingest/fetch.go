package ingest

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/finwire/newsintel/internal/model"
)

// Feed bodies shorter than this are treated as teaser stubs worth
// replacing with the full article text.
const stubBodyLength = 200

// FetchResult holds the outcome of a content-fetch run.
type FetchResult struct {
	Fetched int
	Skipped int
	Failed  int
}

// ContentFetcher fetches full article text via HTTP + readability
// extraction for articles whose feed body is only a teaser.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher creates a content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillBodies fetches full text for stub articles in place. A domain that
// fails once is not retried within the run.
func (f *ContentFetcher) FillBodies(articles []*model.Article) *FetchResult {
	result := &FetchResult{}
	failedDomains := make(map[string]struct{})

	for _, article := range articles {
		if article.URL == "" || len(article.Body) >= stubBodyLength {
			result.Skipped++
			continue
		}

		u, _ := url.Parse(article.URL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		content, err := f.fetchArticleContent(article.URL)
		if err != nil {
			log.Printf("Failed to fetch %s: %v", article.URL, err)
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			result.Failed++
			continue
		}

		if len(content) > len(article.Body) {
			article.Body = content
		}
		result.Fetched++
	}
	return result
}

func (f *ContentFetcher) fetchArticleContent(articleURL string) (string, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newsintel/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	parsed, err := url.Parse(articleURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(article.TextContent), nil
}
