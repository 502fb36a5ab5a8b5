package article

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/newscuss/internal/domain"
)

const page = `<!doctype html>
<html><head>
<title>Fallback   title</title>
<meta property="og:title" content="Tariffs rise again">
<meta name="description" content="Plain description">
<meta property="og:description" content="Economists warn about prices.">
<meta property="og:site_name" content="Example News">
</head><body><p>Body</p></body></html>`

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://news.example/a"))
	assert.NoError(t, ValidateURL(" http://news.example/a?x=1 "))
	for _, bad := range []string{"", "news.example/a", "ftp://news.example/a", "https://", "javascript:alert(1)"} {
		assert.ErrorIs(t, ValidateURL(bad), domain.ErrInvalidURL, bad)
	}
}

func TestPreviewer_ExtractsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	p := NewPreviewer(NewPreviewCache(time.Hour))
	got, err := p.Preview(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, "Tariffs rise again", got.Title)
	assert.Equal(t, "Economists warn about prices.", got.Description)
	assert.Equal(t, "Example News", got.SiteName)

	_, err = p.Preview(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPreviewer_Fallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>
  Only a title </title><meta name="description" content="Short"></head></html>`))
	}))
	defer srv.Close()

	got, err := NewPreviewer(nil).Preview(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Only a title", got.Title)
	assert.Equal(t, "Short", got.Description)
	assert.Equal(t, "127.0.0.1", got.SiteName)
}

func TestPreviewer_RejectsBeforeFetching(t *testing.T) {
	_, err := NewPreviewer(nil).Preview(context.Background(), "not a url")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestPreviewer_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewPreviewer(nil).Preview(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestPreviewCache_Expiry(t *testing.T) {
	c := NewPreviewCache(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("u", &domain.ArticlePreview{URL: "u", Title: "T"})
	require.NotNil(t, c.Get("u"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.Get("u"))
	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 0, c.Prune())

	var nilCache *PreviewCache
	nilCache.Set("u", &domain.ArticlePreview{})
	assert.Nil(t, nilCache.Get("u"))
}
