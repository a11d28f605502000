// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API. It adapts protoforge's normalized Request/Response
// structures into the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/credential"
	"github.com/hupe1980/protoforge/internal/transport"
	"github.com/hupe1980/protoforge/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the OpenAI model adapter. Sampling parameters are not
// part of the options; they travel with every request.
type Options struct {
	Model    string
	APIKey   string
	BaseURL  string
	ProxyURL string
	Timeout  time.Duration
	// HTTPClient overrides the client built from ProxyURL/Timeout.
	HTTPClient *http.Client
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel validates the API key and creates a model backed by the official
// client. The client never reads proxy settings from the environment.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:   openai.ChatModelGPT4oMini,
		Timeout: 2 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := credential.Validate("OPENAI_API_KEY", opts.APIKey, credential.OpenAIPrefixes...); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = transport.NewHTTPClient(opts.ProxyURL, opts.Timeout)
		if err != nil {
			return nil, core.NewError(core.KindConfiguration, "openai.new", err)
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

	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}, nil
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{Model: openai.ChatModelGPT4oMini}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model with a single non-streaming completion.
func (m *Model) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               m.opts.Model,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(req.MaxOutputTokens),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Response{}, fmt.Errorf("no choices returned")
	}

	ch0 := resp.Choices[0]
	return model.Response{
		ID:           resp.ID,
		Content:      core.NewTextContent(core.RoleAssistant, ch0.Message.Content),
		FinishReason: ch0.FinishReason,
	}, nil
}

// buildMessages converts normalized contents into OpenAI chat messages,
// prefixed by the system instruction.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Contents)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, c := range req.Contents {
		text := c.Text()
		switch c.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(text))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}
	return messages
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     m.opts.Model,
		Provider: "openai",
	}
}
