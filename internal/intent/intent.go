// Package intent turns a free-text sales question into a company name and
// an intent tag using a language model. The scoring core only ever sees the
// structured result.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/account-intel/pkg/anthropic"
)

// Kind is the action a query asks for.
type Kind string

// Supported intents.
const (
	Recommend Kind = "recommend"
	Similar   Kind = "similar"
	Adoption  Kind = "adoption"
	Prospect  Kind = "prospect"
	Resolve   Kind = "resolve"
	Unknown   Kind = "unknown"
)

// Valid reports whether k is a supported intent other than Unknown.
func (k Kind) Valid() bool {
	switch k {
	case Recommend, Similar, Adoption, Prospect, Resolve:
		return true
	}
	return false
}

// Query is the structured form of a user question.
type Query struct {
	Company string `json:"company"`
	Intent  Kind   `json:"intent"`
	// Segment or business description, set for prospect queries.
	Segment string `json:"segment,omitempty"`
}

// Parser converts free text into a Query.
type Parser interface {
	Parse(ctx context.Context, text string) (Query, error)
}

const systemPrompt = `You route questions from a B2B sales team about their API product accounts.
Reply with one JSON object and nothing else:
{"company": "<company name as written, or empty>", "intent": "<intent>", "segment": "<segment or business description, or empty>"}

Intents:
- recommend: what to cross-sell or upsell to an existing client
- similar: which clients resemble a given client
- adoption: product adoption statistics for a segment
- prospect: what to pitch to a company that is not yet a client; put its industry or description in "segment"
- resolve: look up which client a name refers to
- unknown: anything else

Do not invent company names. Keep the company name exactly as the user wrote it.`

const defaultMaxTokens = 256

// LLMParser implements Parser with the Anthropic Messages API.
type LLMParser struct {
	client anthropic.Completer
	model  string
}

// NewLLMParser creates a Parser backed by client using model.
func NewLLMParser(client anthropic.Completer, model string) *LLMParser {
	return &LLMParser{client: client, model: model}
}

// Parse implements Parser. An unrecognized intent tag is reported as Unknown
// rather than an error.
func (p *LLMParser) Parse(ctx context.Context, text string) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, eris.New("intent: empty query")
	}

	resp, err := p.client.Complete(ctx, anthropic.Prompt{
		Model:         p.model,
		System:        systemPrompt,
		User:          text,
		MaxTokens:     defaultMaxTokens,
		CacheTTL:      "1h",
		Deterministic: true,
		Purpose:       "intent",
	})
	if err != nil {
		return Query{}, eris.Wrap(err, "intent: parse query")
	}

	var q Query
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &q); err != nil {
		zap.L().Warn("intent: model returned invalid json",
			zap.String("text", resp.Text),
			zap.Error(err),
		)
		return Query{}, eris.Wrap(err, "intent: decode model output")
	}

	q.Company = strings.TrimSpace(q.Company)
	q.Segment = strings.TrimSpace(q.Segment)
	q.Intent = Kind(strings.ToLower(strings.TrimSpace(string(q.Intent))))
	if !q.Intent.Valid() {
		q.Intent = Unknown
	}
	return q, nil
}

// cleanJSON extracts a JSON object from text that may carry markdown code
// fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
