// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv export API for papers matching a topic.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// apiBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// DefaultMaxResults is the result count used when the caller passes zero.
const DefaultMaxResults = 5

// Paper is one search hit from the arXiv API.
type Paper struct {
	// ID is the arXiv short identifier including the version suffix
	// (e.g. "2301.07041v2"). It keys the topic's stored document.
	ID        string
	Title     string
	Authors   []string
	Summary   string
	PDFURL    string
	Published time.Time
}

// Record converts the paper to its stored form.
func (p Paper) Record() types.PaperRecord {
	return types.PaperRecord{
		Title:     p.Title,
		Authors:   p.Authors,
		Summary:   p.Summary,
		PDFURL:    p.PDFURL,
		Published: p.Published.Format("2006-01-02"),
	}
}

// Client queries the arXiv API.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	MaxRetries int

	// MaxResults is the result count used when a search passes zero.
	// Zero falls back to DefaultMaxResults.
	MaxResults int
}

// Search queries arXiv for the topic, ordered by relevance, and returns up
// to maxResults papers. A zero maxResults falls back to the client's
// configured MaxResults, then DefaultMaxResults.
func (c *Client) Search(ctx context.Context, topic string, maxResults int) ([]Paper, error) {
	q := buildQuery(topic)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if maxResults <= 0 {
		maxResults = c.MaxResults
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		apiBase, q, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var papers []Paper
	for _, entry := range feed.Entries {
		id := shortID(entry.ID)
		if id == "" {
			continue
		}

		p := Paper{
			ID:      id,
			Title:   strings.Join(strings.Fields(entry.Title), " "),
			Summary: strings.TrimSpace(entry.Summary),
			PDFURL:  pdfURL(entry, id),
		}
		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Published = t
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// buildQuery constructs the search_query parameter from the topic text.
func buildQuery(topic string) string {
	terms := strings.Fields(topic)
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// shortID pulls the short identifier from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1"). The version
// suffix is kept so repeated searches key revisions consistently.
func shortID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return idURL[idx+len(prefix):]
}

// pdfURL returns the entry's PDF link, falling back to the canonical
// arxiv.org path when the feed omits one.
func pdfURL(entry arxivEntry, id string) string {
	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	return "https://arxiv.org/pdf/" + id
}
