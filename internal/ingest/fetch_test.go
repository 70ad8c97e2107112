package ingest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finwire/newsintel/internal/model"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>HDFC Bank raises lending rate</title></head>
<body><article>
<h1>HDFC Bank raises lending rate</h1>
<p>%s</p>
</article></body></html>`

func TestFillBodiesReplacesStubs(t *testing.T) {
	longText := strings.Repeat("The bank raised its benchmark lending rate by 25 basis points. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, articlePage, longText)
	}))
	defer srv.Close()

	articles := []*model.Article{
		{ID: "a1", Title: "Stub teaser", Body: "Short teaser.", URL: srv.URL + "/1"},
		{ID: "a2", Title: "Already full", Body: strings.Repeat("x", stubBodyLength), URL: srv.URL + "/2"},
		{ID: "a3", Title: "No link", Body: "teaser"},
	}

	f := NewContentFetcher(5 * time.Second)
	result := f.FillBodies(articles)

	if result.Fetched != 1 || result.Skipped != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 1 fetched / 2 skipped", result)
	}
	if !strings.Contains(articles[0].Body, "25 basis points") {
		t.Errorf("stub body not replaced: %q", articles[0].Body)
	}
	if articles[1].Body != strings.Repeat("x", stubBodyLength) {
		t.Error("full body should be left alone")
	}
}

func TestFillBodiesSkipsFailedDomain(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	articles := []*model.Article{
		{ID: "a1", Title: "One", Body: "t", URL: srv.URL + "/1"},
		{ID: "a2", Title: "Two", Body: "t", URL: srv.URL + "/2"},
	}

	f := NewContentFetcher(5 * time.Second)
	result := f.FillBodies(articles)

	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2", result.Failed)
	}
	if hits != 1 {
		t.Errorf("failed domain hit %d times, want 1", hits)
	}
}
