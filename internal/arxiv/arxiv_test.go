// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Quantum  Computing
      Advances</title>
    <summary>
      A survey of recent progress.
    </summary>
    <published>2023-01-17T14:30:00Z</published>
    <author><name>Alice Smith</name></author>
    <author><name>Bob Jones</name></author>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1310.7911v2</id>
    <title>Older Paper</title>
    <summary>Second entry.</summary>
    <published>2013-10-29T09:00:00Z</published>
    <author><name>Carol White</name></author>
  </entry>
  <entry>
    <id>http://example.org/not-arxiv</id>
    <title>Malformed entry</title>
  </entry>
</feed>`

func serveFeed(t *testing.T, status int, body string) (*Client, func() string) {
	t.Helper()
	var lastQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	old := apiBase
	apiBase = ts.URL
	t.Cleanup(func() { apiBase = old })

	return &Client{HTTPClient: ts.Client(), UserAgent: "test/0.1"}, func() string { return lastQuery }
}

func TestSearchParsesFeed(t *testing.T) {
	c, _ := serveFeed(t, http.StatusOK, sampleFeed)

	papers, err := c.Search(context.Background(), "quantum computing", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2 (malformed entry skipped)", len(papers))
	}

	p := papers[0]
	if p.ID != "2301.07041v1" {
		t.Errorf("ID = %q, want version suffix kept", p.ID)
	}
	if p.Title != "Quantum Computing Advances" {
		t.Errorf("Title = %q, want whitespace collapsed", p.Title)
	}
	if p.Summary != "A survey of recent progress." {
		t.Errorf("Summary = %q", p.Summary)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2301.07041v1" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Alice Smith" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if got := p.Record().Published; got != "2023-01-17" {
		t.Errorf("Record().Published = %q, want 2023-01-17", got)
	}

	// Entry without an explicit pdf link falls back to the canonical path.
	if papers[1].PDFURL != "https://arxiv.org/pdf/1310.7911v2" {
		t.Errorf("fallback PDFURL = %q", papers[1].PDFURL)
	}
}

func TestSearchQueryConstruction(t *testing.T) {
	c, lastQuery := serveFeed(t, http.StatusOK, sampleFeed)

	if _, err := c.Search(context.Background(), "quantum computing", 0); err != nil {
		t.Fatal(err)
	}

	q := lastQuery()
	for _, want := range []string{
		"search_query=all:quantum+computing",
		fmt.Sprintf("max_results=%d", DefaultMaxResults),
		"sortBy=relevance",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}
}

func TestSearchClientMaxResults(t *testing.T) {
	c, lastQuery := serveFeed(t, http.StatusOK, sampleFeed)
	c.MaxResults = 3

	if _, err := c.Search(context.Background(), "quantum", 0); err != nil {
		t.Fatal(err)
	}
	if q := lastQuery(); !strings.Contains(q, "max_results=3") {
		t.Errorf("query %q should use the client's configured max_results", q)
	}
}

func TestSearchEmptyTopic(t *testing.T) {
	c := &Client{}
	if _, err := c.Search(context.Background(), "   ", 5); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestSearchHTTPError(t *testing.T) {
	c, _ := serveFeed(t, http.StatusBadRequest, "bad request")
	if _, err := c.Search(context.Background(), "quantum", 5); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
}

func TestSearchBadXML(t *testing.T) {
	c, _ := serveFeed(t, http.StatusOK, "{not xml}")
	if _, err := c.Search(context.Background(), "quantum", 5); err == nil {
		t.Fatal("expected error for malformed feed")
	}
}
