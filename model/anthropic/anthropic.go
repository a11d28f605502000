// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/credential"
	"github.com/hupe1980/protoforge/internal/transport"
	"github.com/hupe1980/protoforge/model"
)

// Options configures the Anthropic model adapter (model id, API key and
// transport). Temperature and token budget travel with each request.
type Options struct {
	Model      anthropic.Model
	APIKey     string
	BaseURL    string
	ProxyURL   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel validates the API key and creates a model using the official client.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:   anthropic.ModelClaude3_5Sonnet20241022,
		Timeout: 2 * time.Minute,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := credential.Validate("ANTHROPIC_API_KEY", opts.APIKey, credential.AnthropicPrefixes...); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = transport.NewHTTPClient(opts.ProxyURL, opts.Timeout)
		if err != nil {
			return nil, core.NewError(core.KindConfiguration, "anthropic.new", err)
		}
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}, nil
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model: anthropic.ModelClaude3_5Sonnet20241022,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Generate implements model.Model using a single Messages API call.
func (m *Model) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.Contents),
		MaxTokens:   req.MaxOutputTokens,
		Temperature: anthropic.Float(req.Temperature),
	}

	if systemBlocks := extractSystem(req); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var parts []core.Part
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if text := block.AsText().Text; text != "" {
			parts = append(parts, core.TextPart{Text: text})
		}
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	return model.Response{
		ID:           resp.ID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: finishReason,
	}, nil
}

// buildMessages converts contents to Anthropic message format. Consecutive
// user contents are sent as separate user turns; the API merges them.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, c := range contents {
		text := c.Text()
		if text == "" || c.Role == core.RoleSystem {
			continue // System messages handled separately
		}

		switch c.Role {
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}

	return messages
}

// extractSystem collects the instruction plus any system-role contents.
func extractSystem(req model.Request) []anthropic.TextBlockParam {
	var systemBlocks []anthropic.TextBlockParam

	if req.Instructions != "" {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, c := range req.Contents {
		if c.Role != core.RoleSystem {
			continue
		}
		if text := c.Text(); text != "" {
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: text})
		}
	}

	return systemBlocks
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     string(m.opts.Model),
		Provider: "anthropic",
	}
}
