package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"net/url"
	"path"
	"time"

	"github.com/lysyi3m/rss-curator/app/database"
)

// Channel describes the curated feed served to the newsletter assembler.
type Channel struct {
	Title       string
	Link        string // public base URL
	Description string
	Version     string
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders stored relevant items as an RSS 2.0 document. Summaries become
// descriptions and active tags become categories.
func (g *Generator) Run(channel Channel, items []database.Item) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", channel.Description, 4)

	if channel.Link != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.Link+"/feed.xml")))
	}

	lastBuildDate := time.Now().UTC()
	if len(items) > 0 {
		lastBuildDate = items[0].CreatedAt
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Curator/%s", channel.Version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", isURL(item.Link)))
	xml.EscapeText(buf, []byte(item.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "description", item.Summary, 6)
	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)

	for _, tag := range Tags(item.Tags).Active() {
		g.writeElement(buf, "category", tag, 6)
	}

	if item.ImageURL != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(item.ImageURL),
			html.EscapeString(imageType(item.ImageURL))))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func imageType(imageURL string) string {
	if u, err := url.Parse(imageURL); err == nil {
		if t := mime.TypeByExtension(path.Ext(u.Path)); t != "" {
			return t
		}
	}
	return "image/jpeg"
}
