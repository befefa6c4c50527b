package llmfactory

import (
	"context"
	"iter"
	"slices"

	"github.com/effective-security/llmfacade/pkg/llms"
)

type callOptionsModel struct {
	llms.Model
	options []llms.CallOption
}

// WithCallOptions returns the model that applies the options on every call,
// before the options of the call.
// The returned model implements llms.CompletionStreamer,
// the stream fails with a configuration error when the wrapped model has no completion stream.
func WithCallOptions(model llms.Model, options ...llms.CallOption) llms.Model {
	return &callOptionsModel{
		Model:   model,
		options: options,
	}
}

func (m *callOptionsModel) with(options []llms.CallOption) []llms.CallOption {
	return slices.Concat(m.options, options)
}

func (m *callOptionsModel) Complete(ctx context.Context, prompt string, options ...llms.CallOption) (llms.Outcome, error) {
	return m.Model.Complete(ctx, prompt, m.with(options)...)
}

func (m *callOptionsModel) Chat(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.Outcome, error) {
	return m.Model.Chat(ctx, messages, m.with(options)...)
}

func (m *callOptionsModel) ChatStream(ctx context.Context, messages []llms.Message, options ...llms.CallOption) iter.Seq2[string, error] {
	return m.Model.ChatStream(ctx, messages, m.with(options)...)
}

func (m *callOptionsModel) Vision(ctx context.Context, prompt string, imagePaths []string, options ...llms.CallOption) (llms.Outcome, error) {
	return m.Model.Vision(ctx, prompt, imagePaths, m.with(options)...)
}

func (m *callOptionsModel) CompleteStream(ctx context.Context, prompt string, options ...llms.CallOption) iter.Seq2[string, error] {
	pt := m.GetProviderType()
	s, ok := m.Model.(llms.CompletionStreamer)
	if !ok || !pt.Supports(llms.CapabilityCompletion) || !pt.Supports(llms.CapabilityStreaming) {
		return llms.ErrorStream(llms.ConfigError("provider %s does not support completion streaming", pt))
	}
	return s.CompleteStream(ctx, prompt, m.with(options)...)
}
