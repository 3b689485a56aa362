package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/rss-curator/app/feed"
	"golang.org/x/net/html/charset"
)

const (
	StrategyNone     = "none"
	StrategyOGImage  = "og_image"
	StrategySelector = "selector"
)

// Strategy finds an illustrative image for an item. An empty URL means the
// item has no image.
type Strategy interface {
	Lookup(ctx context.Context, item feed.Item) (string, error)
}

type None struct{}

func (None) Lookup(ctx context.Context, item feed.Item) (string, error) {
	return "", nil
}

type pageFetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func (p *pageFetcher) document(ctx context.Context, link string) (*goquery.Document, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, 10<<20), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect page encoding: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	return doc, nil
}

// OGImage reads the Open Graph or Twitter card image of the item's page.
type OGImage struct {
	page *pageFetcher
}

func NewOGImage(httpClient *http.Client, userAgent string, timeout time.Duration) *OGImage {
	return &OGImage{page: &pageFetcher{httpClient: httpClient, userAgent: userAgent, timeout: timeout}}
}

func (s *OGImage) Lookup(ctx context.Context, item feed.Item) (string, error) {
	doc, err := s.page.document(ctx, item.Link)
	if err != nil {
		return "", err
	}

	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			return resolve(item.Link, content)
		}
	}

	return "", nil
}

// Selector takes an attribute of the first element matching a CSS
// selector, e.g. "#js_content img" with "data-src" for lazy-loaded images.
type Selector struct {
	page      *pageFetcher
	selector  string
	attribute string
}

func NewSelector(httpClient *http.Client, userAgent string, timeout time.Duration, selector, attribute string) *Selector {
	if attribute == "" {
		attribute = "src"
	}
	return &Selector{
		page:      &pageFetcher{httpClient: httpClient, userAgent: userAgent, timeout: timeout},
		selector:  selector,
		attribute: attribute,
	}
}

func (s *Selector) Lookup(ctx context.Context, item feed.Item) (string, error) {
	doc, err := s.page.document(ctx, item.Link)
	if err != nil {
		return "", err
	}

	var found string
	doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if value, ok := sel.Attr(s.attribute); ok && strings.TrimSpace(value) != "" {
			found = value
			return false
		}
		return true
	})

	if found == "" {
		return "", nil
	}
	return resolve(item.Link, found)
}

func resolve(pageURL, ref string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}
	target, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("invalid image URL: %w", err)
	}
	return base.ResolveReference(target).String(), nil
}
