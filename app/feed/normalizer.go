package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxBodySize = 10 << 20

// Normalizer fetches a source's feed document and turns every entry into an
// Item with plain-text content.
type Normalizer struct {
	httpClient *http.Client
	parser     *Parser
	extractor  *ContentExtractor
	userAgent  string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewNormalizer(httpClient *http.Client, parser *Parser, extractor *ContentExtractor,
	userAgent string, timeout time.Duration, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		httpClient: httpClient,
		parser:     parser,
		extractor:  extractor,
		userAgent:  userAgent,
		timeout:    timeout,
		logger:     logger,
	}
}

// Fetch returns the source's current items in document order. A feed with
// no entries yields an empty slice and no error. Any *FetchError or
// *ParseError aborts the whole source.
func (n *Normalizer) Fetch(ctx context.Context, source *Source) ([]Item, error) {
	timeout := n.timeout
	if source.Settings.Timeout > 0 {
		timeout = time.Duration(source.Settings.Timeout) * time.Second
	}

	data, _, err := n.get(ctx, source.URL, timeout)
	if err != nil {
		return nil, err
	}

	entries, err := n.parser.Run(data)
	if err != nil {
		return nil, &ParseError{URL: source.URL, Err: err}
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.Link == "" {
			n.logger.Warn("Entry without link, skipping", "source", source.Name, "title", entry.Title)
			continue
		}
		if entry.Published == nil {
			return nil, &ParseError{URL: source.URL, Link: entry.Link, Err: fmt.Errorf("missing or unparseable publish timestamp")}
		}

		item := Item{
			Title:     entry.Title,
			Link:      entry.Link,
			Published: *entry.Published,
			Source:    source.Name,
		}

		if strings.TrimSpace(entry.Content) != "" {
			item.Content = n.extractor.Clean(entry.Content)
		} else {
			content, err := n.fetchPageText(ctx, entry.Link, timeout)
			if err != nil {
				return nil, err
			}
			item.Content = content
			item.HTMLNoise = true
		}

		items = append(items, item)
	}

	n.logger.Debug("Source normalized", "source", source.Name, "entries", len(entries), "items", len(items))

	return items, nil
}

func (n *Normalizer) fetchPageText(ctx context.Context, link string, timeout time.Duration) (string, error) {
	data, contentType, err := n.get(ctx, link, timeout)
	if err != nil {
		return "", err
	}

	text, err := n.extractor.Run(data, contentType)
	if err != nil {
		return "", &ParseError{URL: link, Link: link, Err: err}
	}

	return text, nil
}

func (n *Normalizer) get(ctx context.Context, url string, timeout time.Duration) ([]byte, string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, resp.Header.Get("Content-Type"), nil
}
