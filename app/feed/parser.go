package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS, Atom or JSON feed document and returns its entries in
// document order.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeEntry(item))
	}

	return entries, nil
}

func (p *Parser) normalizeEntry(item *gofeed.Item) Entry {
	link := item.Link
	if guidLink := linkFromGUID(item.GUID); link == "" {
		link = guidLink
	}
	entry := Entry{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(link),
		Content: item.Content,
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		entry.Published = &published
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		entry.Published = &updated
	}

	return entry
}

func linkFromGUID(guid string) string {
	if isURL(guid) {
		return guid
	}
	return ""
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
