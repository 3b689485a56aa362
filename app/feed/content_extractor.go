package feed

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

var (
	markupTag       = regexp.MustCompile(`<[^>]*>`)
	entityFragment  = regexp.MustCompile(`&[#a-zA-Z0-9]+;`)
	invisibleBlocks = "script, style, noscript, template, iframe, svg, head"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Clean turns embedded feed markup into plain text. Tags and character
// entity fragments are removed, not decoded, and inner whitespace is kept.
func (e *ContentExtractor) Clean(markup string) string {
	text := markupTag.ReplaceAllString(markup, "")
	text = entityFragment.ReplaceAllString(text, "")
	return strings.TrimSpace(norm.NFC.String(text))
}

// Run extracts the visible text of an HTML page. contentType is the
// response Content-Type header and is used to pick the page encoding. A page
// without visible text yields "" and no error.
func (e *ContentExtractor) Run(data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to detect page encoding: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(invisibleBlocks).Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	return strings.Join(strings.Fields(norm.NFC.String(text)), " "), nil
}
