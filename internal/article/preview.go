// Package article fetches a light preview (title, description, site name)
// of a news page so the user can confirm the link before it is analysed.
package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/set-night/newscuss/internal/config"
	"github.com/set-night/newscuss/internal/domain"
)

// maxPageBytes caps how much of a page is read; the metadata sits in <head>.
const maxPageBytes = 2 << 20

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.ErrInvalidURL
	}
	return nil
}

type Previewer struct {
	httpClient *http.Client
	cache      *PreviewCache
	userAgent  string
}

func NewPreviewer(cache *PreviewCache) *Previewer {
	return &Previewer{
		httpClient: &http.Client{Timeout: config.PreviewTimeout},
		cache:      cache,
		userAgent:  "Mozilla/5.0 (compatible; NewscussBot/1.0)",
	}
}

// WithHTTPClient swaps the client used for page fetches.
func (p *Previewer) WithHTTPClient(c *http.Client) *Previewer {
	p.httpClient = c
	return p
}

func (p *Previewer) Preview(ctx context.Context, rawURL string) (*domain.ArticlePreview, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if cached := p.cache.Get(rawURL); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	preview := extract(doc, rawURL)
	p.cache.Set(rawURL, preview)
	return preview, nil
}

func extract(doc *goquery.Document, rawURL string) *domain.ArticlePreview {
	preview := &domain.ArticlePreview{
		URL:         rawURL,
		Title:       firstNonEmpty(meta(doc, "og:title"), meta(doc, "twitter:title"), doc.Find("title").First().Text()),
		Description: firstNonEmpty(meta(doc, "og:description"), meta(doc, "description"), meta(doc, "twitter:description")),
		SiteName:    meta(doc, "og:site_name"),
	}
	if preview.SiteName == "" {
		if u, err := url.Parse(rawURL); err == nil {
			preview.SiteName = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return preview
}

// meta reads a <meta> tag by property or name.
func meta(doc *goquery.Document, key string) string {
	var value string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		prop, _ := sel.Attr("property")
		name, _ := sel.Attr("name")
		if !strings.EqualFold(prop, key) && !strings.EqualFold(name, key) {
			return true
		}
		content, _ := sel.Attr("content")
		value = strings.TrimSpace(content)
		return value == ""
	})
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}
