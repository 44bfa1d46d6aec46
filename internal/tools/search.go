package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anaskhan96/soup"
)

const duckDuckGoURL = "https://html.duckduckgo.com"

// SearchResult is one snippet from the web search tool.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchClient queries the DuckDuckGo HTML endpoint and scrapes result
// snippets out of the returned page.
type SearchClient struct {
	http       *http.Client
	baseURL    string
	maxResults int
}

func NewSearchClient(timeout time.Duration) *SearchClient {
	return &SearchClient{
		http:       &http.Client{Timeout: timeout},
		baseURL:    duckDuckGoURL,
		maxResults: 5,
	}
}

// Search runs a free-text query. An empty query is a *ValidationError.
func (c *SearchClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Msg: "empty search query"}
	}

	endpoint := c.baseURL + "/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; threadchat/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api request failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	doc := soup.HTMLParse(string(body))
	if doc.Error != nil {
		return nil, fmt.Errorf("parse search response: %w", doc.Error)
	}

	var results []SearchResult
	for _, div := range doc.FindAll("div", "class", "result") {
		link := div.Find("a", "class", "result__a")
		if link.Error != nil {
			continue
		}
		r := SearchResult{
			Title: strings.TrimSpace(link.FullText()),
			URL:   link.Attrs()["href"],
		}
		if sn := div.Find("a", "class", "result__snippet"); sn.Error == nil {
			r.Snippet = strings.TrimSpace(sn.FullText())
		}
		results = append(results, r)
		if len(results) >= c.maxResults {
			break
		}
	}
	return results, nil
}
