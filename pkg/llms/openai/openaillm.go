package openai

import (
	"context"
	"iter"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/internal/openaiclient"
	"github.com/effective-security/x/values"
)

// LLM is an OpenAI-compatible model.
type LLM struct {
	runner *openaiclient.Runner
}

var (
	_ llms.Model              = (*LLM)(nil)
	_ llms.CompletionStreamer = (*LLM)(nil)
)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	c := openaiclient.New(
		openaiclient.BaseURLRouter(o.baseURL),
		openaiclient.BearerAuth(o.token, o.organization),
		o.httpClient,
	)
	return &LLM{
		runner: &openaiclient.Runner{
			Client:   c,
			Provider: llms.ProviderOpenAI,
			Model:    values.StringsCoalesce(o.model, DefaultModel),
		},
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.runner.Model
}

// URL returns the endpoint URL for the suffix, like /chat/completions
func (o *LLM) URL(suffix string) string {
	return o.runner.Client.URL(suffix)
}

// Complete implements the Model interface, it calls /completions.
func (o *LLM) Complete(ctx context.Context, prompt string, options ...llms.CallOption) (llms.Outcome, error) {
	return o.runner.Complete(ctx, prompt, options...)
}

// CompleteStream streams the text of /completions.
func (o *LLM) CompleteStream(ctx context.Context, prompt string, options ...llms.CallOption) iter.Seq2[string, error] {
	return o.runner.CompleteStream(ctx, prompt, options...)
}

// Chat implements the Model interface, it calls /chat/completions.
func (o *LLM) Chat(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.Outcome, error) {
	return o.runner.Chat(ctx, messages, options...)
}

// ChatStream implements the Model interface.
func (o *LLM) ChatStream(ctx context.Context, messages []llms.Message, options ...llms.CallOption) iter.Seq2[string, error] {
	return o.runner.ChatStream(ctx, messages, options...)
}

// Vision implements the Model interface, images are sent as data URL.
func (o *LLM) Vision(ctx context.Context, prompt string, imagePaths []string, options ...llms.CallOption) (llms.Outcome, error) {
	return o.runner.Vision(ctx, prompt, imagePaths, options...)
}
