// Package claude adapts the Anthropic Messages API to the chat-completion
// interface the extraction components consume, so the completion provider is
// a configuration choice rather than a code change.
package claude

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/pkg/openai"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// Client implements openai.Client on top of the official anthropic-sdk-go.
type Client struct {
	client sdk.Client
	model  string
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithRequestOptions appends raw SDK request options (base URL, middleware).
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *Client) {
		c.client = sdk.NewClient(opts...)
	}
}

// NewClient creates a new Anthropic-backed completion client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ChatCompletion sends the conversation to the Messages API. System-role
// messages become system blocks; the reply's text blocks are concatenated
// into a single assistant message so callers see one completion choice.
func (c *Client) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	maxTokens := int64(1024)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "claude: create message")
	}

	var content string
	for _, block := range msg.Content {
		content += block.Text
	}

	return &openai.ChatCompletionResponse{
		ID: msg.ID,
		Choices: []openai.Choice{
			{Index: 0, Message: openai.Message{Role: "assistant", Content: content}},
		},
		Usage: openai.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
