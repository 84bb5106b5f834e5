package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// ClassifiedMetadata is the structured output the classifier produces for a
// note.
type ClassifiedMetadata struct {
	Slug     string   `json:"slug"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Excerpt  string   `json:"excerpt"`
}

// Classifier produces content metadata for a converted note.
type Classifier interface {
	Classify(content, title, folder string) (*ClassifiedMetadata, error)
}

// ErrClassifierDisabled signals the caller should use rule-based metadata
// without logging a failure.
var ErrClassifierDisabled = errors.New("classifier disabled")

// DisabledClassifier is used when no API key is configured.
type DisabledClassifier struct{}

func (DisabledClassifier) Classify(content, title, folder string) (*ClassifiedMetadata, error) {
	return nil, ErrClassifierDisabled
}

const classifierSystemPrompt = `You classify personal notes for publication on a blog.
Given a note's title, folder, and content, respond with a JSON object containing:
- "slug": a URL-safe kebab-case slug derived from the title
- "category": one of Business, Food, Travel, Health, Technology, Ideas, Personal
- "tags": 3-8 lowercase topic tags
- "excerpt": a one-sentence summary under 160 characters

Respond with only the JSON object.`

// AnthropicClassifier asks Claude for metadata. Requests are throttled so
// batch exports stay inside rate limits.
type AnthropicClassifier struct {
	apiKey string
	cfg    *Settings

	mu       sync.Mutex
	lastCall time.Time
}

func NewAnthropicClassifier(apiKey string, cfg *Settings) *AnthropicClassifier {
	return &AnthropicClassifier{apiKey: apiKey, cfg: cfg}
}

// throttle enforces the configured minimum delay between API calls.
func (c *AnthropicClassifier) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	minInterval := time.Duration(c.cfg.Classifier.RequestDelaySeconds) * time.Second
	if elapsed := time.Since(c.lastCall); elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	c.lastCall = time.Now()
}

func (c *AnthropicClassifier) Classify(content, title, folder string) (*ClassifiedMetadata, error) {
	c.throttle()

	// Notes can be long; the classifier only needs the opening.
	if len(content) > 3000 {
		content = truncateRunes(content, 3000)
	}

	userPrompt := fmt.Sprintf("Title: %s\nFolder: %s\n\nContent:\n%s", title, folder, content)

	settings := types.RequestSettings{
		Model:       c.cfg.Classifier.Model,
		MaxTokens:   c.cfg.Classifier.MaxTokens,
		Temperature: c.cfg.Classifier.Temperature,
	}

	response, err := anthropic.PromptWithSettings(classifierSystemPrompt, userPrompt, "", c.apiKey, settings)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("classifier returned empty response")
	}

	raw, err := extractJSONObject(response.Content[0].Text)
	if err != nil {
		return nil, fmt.Errorf("classifier response: %w", err)
	}

	var meta ClassifiedMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("parsing classifier response: %w", err)
	}
	return &meta, nil
}

// extractJSONObject finds the first balanced JSON object in text. Models
// sometimes wrap the object in prose or code fences, so brace matching has
// to be string-aware.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object")
}
