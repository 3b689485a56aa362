package feed

import (
	"strings"
	"testing"
)

func TestContentExtractor_Clean(t *testing.T) {
	extractor := NewContentExtractor()

	tests := []struct {
		name     string
		markup   string
		expected string
	}{
		{
			name:     "tags and entity fragments",
			markup:   "<p>Hello &amp; world</p>",
			expected: "Hello  world",
		},
		{
			name:     "numeric entities",
			markup:   "<div>It&#39;s <b>bold</b>&#x2014;ok</div>",
			expected: "Its boldok",
		},
		{
			name:     "attributes and self-closing tags",
			markup:   `<img src="a.png" alt="x"/><a href="https://example.com">link</a><br/>`,
			expected: "link",
		},
		{
			name:     "inner whitespace kept",
			markup:   "\n  <p>line one</p>\n<p>line two</p>  ",
			expected: "line one\nline two",
		},
		{
			name:     "plain text untouched",
			markup:   "no markup here",
			expected: "no markup here",
		},
		{
			name:     "full width characters kept",
			markup:   "<p>全角，ＡＢＣ１２３</p>",
			expected: "全角，ＡＢＣ１２３",
		},
		{
			name:     "decomposed accents composed",
			markup:   "<p>Cafe\u0301</p>",
			expected: "Caf\u00e9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractor.Clean(tt.markup)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestContentExtractor_Run_VisibleText(t *testing.T) {
	extractor := NewContentExtractor()

	htmlContent := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Test Article</title>
		<style>body { color: red; }</style>
	</head>
	<body>
		<script>var tracking = "do not include";</script>
		<noscript>Enable JavaScript</noscript>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content   of the article.</p>
		</article>
	</body>
	</html>
	`

	result, err := extractor.Run([]byte(htmlContent), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "Main Article Title") {
		t.Errorf("Expected heading in visible text, got: %q", result)
	}
	if !strings.Contains(result, "This is the main content of the article.") {
		t.Errorf("Expected collapsed paragraph text, got: %q", result)
	}

	for _, hidden := range []string{"tracking", "color: red", "Enable JavaScript", "Test Article"} {
		if strings.Contains(result, hidden) {
			t.Errorf("Expected %q to be excluded, got: %q", hidden, result)
		}
	}
}

func TestContentExtractor_Run_Charset(t *testing.T) {
	extractor := NewContentExtractor()

	// "café" encoded as ISO-8859-1
	page := append([]byte("<html><body><p>caf"), 0xe9, '<', '/', 'p', '>')
	page = append(page, []byte("</body></html>")...)

	result, err := extractor.Run(page, "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != "café" {
		t.Errorf("Expected 'café', got %q", result)
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	for _, data := range [][]byte{nil, []byte("<html><body><script>x()</script></body></html>")} {
		text, err := extractor.Run(data, "text/html")
		if err != nil {
			t.Errorf("Expected no error for %q, got %v", data, err)
		}
		if text != "" {
			t.Errorf("Expected empty text for %q, got %q", data, text)
		}
	}
}
