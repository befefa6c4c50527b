package openaiclient

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/internal/callstats"
	"github.com/effective-security/llmfacade/pkg/llmutils"
	"github.com/effective-security/xlog"
)

// Runner implements the llms operations over the client
// for an OpenAI-compatible provider.
type Runner struct {
	Client   *Client
	Provider llms.ProviderType
	// Model is the default model, sent in the payload when not empty.
	Model string
	// Name is reported in metrics and logs when the model is empty.
	Name string
}

func (r *Runner) name(opts *llms.CallOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return r.Name
}

// Complete runs text completion.
func (r *Runner) Complete(ctx context.Context, prompt string, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(r.Model, options...)
	ctx, cancel := opts.WithTimeout(ctx)
	defer cancel()

	payload, err := CompletionPayload(opts.Model, prompt, opts, false)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}

	stats := callstats.StartPrompt(r.Provider, r.name(opts), callstats.OpComplete, prompt)
	text, err := r.Client.CreateCompletion(ctx, payload)
	stats.Done(text, err)
	if err != nil {
		r.logError(ctx, callstats.OpComplete, r.name(opts), err)
	}
	return llms.Resolve(text, err, opts.ReturnError)
}

// Chat runs chat completion, images from options are added to the last user message.
func (r *Runner) Chat(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(r.Model, options...)
	msgs, err := llmutils.InjectImages(messages, opts.ImagePaths, llmutils.ShapeDataURL)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}
	return r.chat(ctx, msgs, opts)
}

// Vision runs chat with a user message of the prompt and the images.
func (r *Runner) Vision(ctx context.Context, prompt string, imagePaths []string, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(r.Model, options...)
	msgs, err := llmutils.VisionMessages(prompt, slices.Concat(imagePaths, opts.ImagePaths), llmutils.ShapeDataURL)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}
	return r.chat(ctx, msgs, opts)
}

func (r *Runner) chat(ctx context.Context, msgs []llms.Message, opts *llms.CallOptions) (llms.Outcome, error) {
	if err := llms.ValidateMessages(msgs); err != nil {
		return llms.Outcome{}, err
	}

	ctx, cancel := opts.WithTimeout(ctx)
	defer cancel()

	payload, err := ChatPayload(opts.Model, msgs, opts, false)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}

	r.logMessages(ctx, msgs)

	stats := callstats.Start(r.Provider, r.name(opts), callstats.OpChat, msgs)
	text, err := r.Client.CreateChat(ctx, payload)
	stats.Done(text, err)
	if err != nil {
		r.logError(ctx, callstats.OpChat, r.name(opts), err)
	}
	return llms.Resolve(text, err, opts.ReturnError)
}

// ChatStream streams chat completion deltas.
func (r *Runner) ChatStream(ctx context.Context, messages []llms.Message, options ...llms.CallOption) iter.Seq2[string, error] {
	opts := llms.NewCallOptions(r.Model, options...)
	msgs, err := llmutils.InjectImages(messages, opts.ImagePaths, llmutils.ShapeDataURL)
	if err == nil {
		err = llms.ValidateMessages(msgs)
	}
	if err != nil {
		return llms.ErrorStream(err)
	}

	payload, err := ChatPayload(opts.Model, msgs, opts, true)
	if err != nil {
		return llms.ErrorStream(err)
	}

	return r.stream(ctx, opts, callstats.OpChatStream, msgs, payload, r.Client.StreamChat)
}

// CompleteStream streams text completion deltas.
func (r *Runner) CompleteStream(ctx context.Context, prompt string, options ...llms.CallOption) iter.Seq2[string, error] {
	opts := llms.NewCallOptions(r.Model, options...)
	payload, err := CompletionPayload(opts.Model, prompt, opts, true)
	if err != nil {
		return llms.ErrorStream(err)
	}
	return r.stream(ctx, opts, callstats.OpCompleteStream, []llms.Message{llms.UserMessage(prompt)}, payload, r.Client.StreamCompletion)
}

func (r *Runner) stream(
	ctx context.Context,
	opts *llms.CallOptions,
	op string,
	msgs []llms.Message,
	payload []byte,
	open func(context.Context, []byte) iter.Seq2[string, error],
) iter.Seq2[string, error] {
	return llms.SingleUse(func(yield func(string, error) bool) {
		ctx, cancel := opts.WithTimeout(ctx)
		defer cancel()

		stats := callstats.Start(r.Provider, r.name(opts), op, msgs)
		var failed error
		for chunk, err := range open(ctx, payload) {
			if err != nil {
				failed = err
				r.logError(ctx, op, r.name(opts), err)
				yield("", err)
				break
			}
			stats.Chunk(chunk)
			if !yield(chunk, nil) {
				break
			}
		}
		stats.Done("", failed)
	})
}

func (r *Runner) logMessages(ctx context.Context, msgs []llms.Message) {
	if !logger.LevelAt(xlog.DEBUG) {
		return
	}
	var b strings.Builder
	llmutils.PrintMessageContents(&b, msgs)
	logger.ContextKV(ctx, xlog.DEBUG,
		"provider", r.Provider,
		"messages", b.String())
}

func (r *Runner) logError(ctx context.Context, op, model string, err error) {
	logger.ContextKV(ctx, xlog.ERROR,
		"provider", r.Provider,
		"model", model,
		"operation", op,
		"err", err.Error())
}
