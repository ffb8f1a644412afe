// Package anthropic runs single-turn completions against the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Completer turns one prompt into one reply.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Prompt is a system instruction plus a single user turn.
type Prompt struct {
	Model     string
	System    string
	User      string
	MaxTokens int64

	// CacheTTL enables prompt caching of System ("5m" or "1h"). Empty
	// disables caching.
	CacheTTL string

	// Temperature is sent only when Deterministic is false; a
	// deterministic prompt is sent at temperature 0.
	Temperature   float64
	Deterministic bool

	// Purpose labels the usage log line.
	Purpose string
}

// Completion is the text of a reply with its accounting.
type Completion struct {
	ID         string
	Text       string
	StopReason string
	Usage      Usage
	Latency    time.Duration
}

// Usage counts tokens for one call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// pricePerMTok maps a model to its input and output price in USD per
// million tokens.
var pricePerMTok = map[string]struct{ in, out float64 }{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// Cost estimates the USD cost of u under model. Unknown models cost 0.
// Cache writes bill at 1.25x input and cache reads at 0.1x input.
func (u Usage) Cost(model string) float64 {
	p, ok := pricePerMTok[model]
	if !ok {
		return 0
	}
	in := float64(u.Input) + 1.25*float64(u.CacheWrite) + 0.1*float64(u.CacheRead)
	return (in*p.in + float64(u.Output)*p.out) / 1e6
}

type client struct {
	messages *sdk.MessageService
}

// NewClient creates a Completer for apiKey. Extra request options are
// applied after the key, so tests can point it at a local server.
func NewClient(apiKey string, opts ...option.RequestOption) Completer {
	c := sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &client{messages: &c.Messages}
}

// Complete implements Completer.
func (c *client) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	if p.User == "" {
		return nil, eris.New("anthropic: empty prompt")
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.Model),
		MaxTokens: p.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
	}
	if p.System != "" {
		sys := sdk.TextBlockParam{Text: p.System}
		if p.CacheTTL != "" {
			cc := sdk.NewCacheControlEphemeralParam()
			cc.TTL = sdk.CacheControlEphemeralTTL(p.CacheTTL)
			sys.CacheControl = cc
		}
		params.System = []sdk.TextBlockParam{sys}
	}
	switch {
	case p.Deterministic:
		params.Temperature = sdk.Float(0)
	case p.Temperature > 0:
		params.Temperature = sdk.Float(p.Temperature)
	}

	start := time.Now()
	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: complete %s", p.Purpose)
	}

	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	out := &Completion{
		ID:         msg.ID,
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Latency:    time.Since(start),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
	zap.L().Debug("anthropic: completion",
		zap.String("purpose", p.Purpose),
		zap.String("model", p.Model),
		zap.Int64("input_tokens", out.Usage.Input),
		zap.Int64("output_tokens", out.Usage.Output),
		zap.Int64("cache_read_tokens", out.Usage.CacheRead),
		zap.Float64("estimated_cost_usd", out.Usage.Cost(p.Model)),
		zap.Duration("latency", out.Latency),
	)
	return out, nil
}
