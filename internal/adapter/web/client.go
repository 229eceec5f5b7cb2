// Package web harvests archive pages from the sightings site: it discovers
// archive links on the index page, fetches them politely, and mirrors them
// to disk for offline pipeline runs.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/marshbird/sightings-etl/internal/observability"
)

// defaultIndexExclude is the live-sightings page, linked from the archive
// index but outside the archive itself.
const defaultIndexExclude = "lsight.htm"

// Client fetches archive pages over HTTP.
type Client struct {
	rootURL    *url.URL
	indexPage  string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a harvester client rooted at the site base URL.
func NewClient(rootURL, indexPage string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Client, error) {
	base, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("parse site root URL: %w", err)
	}
	return &Client{
		rootURL:   base,
		indexPage: indexPage,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}, nil
}

// DiscoverPages fetches the archive index and returns the archive page
// names it links. Archive pages are the 'l'-prefixed .htm links, except the
// live-sightings page; duplicates collapse and the result is sorted.
func (c *Client) DiscoverPages(ctx context.Context) ([]string, error) {
	body, err := c.FetchPage(ctx, c.indexPage)
	if err != nil {
		return nil, fmt.Errorf("fetch archive index: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse archive index: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	walkLinks(doc, func(href string) {
		name := pageName(href)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})
	sort.Strings(names)

	c.logger.Info("archive index discovered", "index", c.indexPage, "pages", len(names))
	return names, nil
}

// FetchPage retrieves one page by name, relative to the site root.
func (c *Client) FetchPage(ctx context.Context, name string) (string, error) {
	ref, err := url.Parse(name)
	if err != nil {
		return "", fmt.Errorf("parse page name %q: %w", name, err)
	}
	fullURL := c.rootURL.ResolveReference(ref).String()

	start := time.Now()
	body, err := c.doRequest(ctx, fullURL)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return "", err
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	return body, nil
}

// MirrorTo discovers every archive page and writes each to dir, returning
// the paths written. Pages that fail to fetch are logged and skipped so one
// broken link does not abort a harvest.
func (c *Client) MirrorTo(ctx context.Context, dir string) ([]string, error) {
	names, err := c.DiscoverPages(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}

	var paths []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		body, err := c.FetchPage(ctx, name)
		if err != nil {
			c.logger.Warn("page fetch failed, skipping", "page", name, "error", err)
			continue
		}
		dest := filepath.Join(dir, name)
		if err := os.WriteFile(dest, []byte(body), 0o644); err != nil {
			return paths, fmt.Errorf("write page %s: %w", name, err)
		}
		paths = append(paths, dest)
	}

	c.logger.Info("archive mirrored", "dir", dir, "pages", len(paths))
	return paths, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", fullURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", fullURL, err)
	}
	return string(body), nil
}

// pageName reduces an index href to an archive page name, or "" when the
// link is not an archive page.
func pageName(href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return ""
	}
	name := path.Base(ref.Path)
	if !strings.HasPrefix(name, "l") || name == defaultIndexExclude {
		return ""
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".htm", ".html":
		return name
	}
	return ""
}

// walkLinks invokes fn with every href attribute of every anchor element.
func walkLinks(n *html.Node, fn func(href string)) {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				fn(attr.Val)
				break
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkLinks(c, fn)
	}
}
