package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lysyi3m/rss-curator/app/feed"
	openai "github.com/sashabaranov/go-openai"
)

const (
	summaryPrompt = "You summarize technical articles for a newsletter about generative AI, digital humans and computer graphics. " +
		"Reply with a plain-text summary of at most 400 characters in the language of the article. Do not add headings."

	tagsPrompt = "Classify the article against these labels. An article may match several labels or none.\n" +
		"aigc: generative AI, large language models, text-to-image models\n" +
		"digital_human: digital humans, motion capture, facial capture, virtual avatars\n" +
		"neural_rendering: neural renderers, NeRF, differentiable rendering\n" +
		"computer_graphics: graphics, renderers, rendering, geometry processing, image processing\n" +
		"computer_vision: classification, detection, segmentation, depth estimation (brain-computer interfaces are not computer vision)\n" +
		"robotics: robots, robot dogs, mechanical and humanoid machines\n" +
		"consumer_electronics: smartphones, smart watches and other consumer devices\n" +
		"Reply only with a JSON object mapping every label to 1 if it applies and 0 otherwise."

	noiseNote = "The article text was scraped from a web page and may contain boilerplate such as navigation, " +
		"subscription prompts, share buttons or reference lists. Ignore it."
)

var errEmptyChoices = errors.New("no choices returned by model")

// Client implements Enricher on an OpenAI-compatible chat completion API.
// It makes two calls per item, one for the summary and one for the tags.
type Client struct {
	client   *openai.Client
	model    string
	maxChars int
	logger   *slog.Logger
}

var _ Enricher = (*Client)(nil)

func NewClient(apiKey, baseURL, model string, maxChars int, httpClient *http.Client, logger *slog.Logger) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	return &Client{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		maxChars: maxChars,
		logger:   logger,
	}
}

func (c *Client) Enrich(ctx context.Context, req Request) (Result, error) {
	article := c.articlePrompt(req)

	summary, err := c.complete(ctx, summaryPrompt, article, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate summary: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return Result{}, fmt.Errorf("model returned an empty summary")
	}

	raw, err := c.complete(ctx, tagsPrompt, article, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate tags: %w", err)
	}

	tags, err := parseTags(raw)
	if err != nil {
		c.logger.Debug("Unusable tags response", "title", req.Title, "content", raw)
		return Result{}, err
	}

	return Result{Summary: summary, Tags: tags}, nil
}

func (c *Client) articlePrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(req.Title)
	b.WriteString("\nArticle:\n```\n")
	b.WriteString(trimText(req.Content, c.maxChars))
	b.WriteString("\n```")
	if req.Noisy {
		b.WriteString("\n")
		b.WriteString(noiseNote)
	}
	return b.String()
}

func (c *Client) complete(ctx context.Context, system, user string, format *openai.ChatCompletionResponseFormat) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:    0.1,
		ResponseFormat: format,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// parseTags reads a label->flag object. Flags may be 0/1 numbers, booleans
// or their string forms. Every taxonomy label must be present.
func parseTags(raw string) (feed.Tags, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(cleanupResponse(raw)), &values); err != nil {
		return nil, fmt.Errorf("failed to parse tags response: %w", err)
	}

	tags := make(feed.Tags, len(feed.Taxonomy))
	for _, label := range feed.Taxonomy {
		value, ok := values[label]
		if !ok {
			return nil, fmt.Errorf("tags response is missing label %q", label)
		}

		flag, err := parseFlag(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for label %q: %w", label, err)
		}
		tags[label] = flag
	}

	return tags, nil
}

func parseFlag(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false":
			return false, nil
		case "1", "true":
			return true, nil
		}
	}
	return false, fmt.Errorf("unexpected flag %v", value)
}

func trimText(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if max <= 0 || len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max])
}

// cleanupResponse removes the code fences some models wrap JSON in.
func cleanupResponse(s string) string {
	c := strings.TrimSpace(s)
	if strings.HasPrefix(c, "```") {
		if idx := strings.Index(c, "\n"); idx != -1 {
			c = c[idx+1:]
		}
		c = strings.TrimSuffix(strings.TrimSpace(c), "```")
		c = strings.TrimSpace(c)
	}
	return c
}
