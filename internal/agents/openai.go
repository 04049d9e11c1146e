package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIResponder uses a chat completion model to write the analysis.
type OpenAIResponder struct {
	client  openai.Client
	model   openai.ChatModel
	catalog *Catalog
}

// OpenAIOptions configures an OpenAIResponder.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
}

// NewOpenAIResponder creates an OpenAIResponder.
func NewOpenAIResponder(catalog *Catalog, opts OpenAIOptions) *OpenAIResponder {
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))

	model := openai.ChatModel(opts.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIResponder{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		catalog: catalog,
	}
}

// Respond implements Responder.
func (r *OpenAIResponder) Respond(ctx context.Context, slug, upstream string) (string, error) {
	profile, ok := r.catalog.Lookup(slug)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAgent, slug)
	}

	user := strings.TrimSpace(upstream)
	if user == "" {
		user = "No upstream data is available. Give a general recommendation."
	}

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(profile.Name, profile.Description)),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return completion.Choices[0].Message.Content, nil
}
