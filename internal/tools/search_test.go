package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<div class="results">
  <div class="result results_links">
    <a class="result__a" href="https://go.dev/">The Go Programming Language</a>
    <a class="result__snippet" href="https://go.dev/">Build simple, secure, scalable systems with Go.</a>
  </div>
  <div class="result results_links">
    <a class="result__a" href="https://go.dev/doc/">Documentation</a>
    <a class="result__snippet" href="https://go.dev/doc/">Official documentation for the Go language.</a>
  </div>
</div>
</body></html>`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	c := NewSearchClient(5 * time.Second)
	c.baseURL = srv.URL

	results, err := c.Search(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The Go Programming Language", results[0].Title)
	assert.Equal(t, "https://go.dev/", results[0].URL)
	assert.Contains(t, results[0].Snippet, "scalable systems")
	assert.Equal(t, "Documentation", results[1].Title)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewSearchClient(time.Second)
	_, err := c.Search(context.Background(), "   ")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
}

func TestSearchCapsResults(t *testing.T) {
	page := "<html><body>"
	for i := 0; i < 10; i++ {
		page += `<div class="result"><a class="result__a" href="https://example.com/">hit</a></div>`
	}
	page += "</body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := NewSearchClient(5 * time.Second)
	c.baseURL = srv.URL

	results, err := c.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, results, 5)
}
