package llms

import (
	"context"
	"maps"
	"slices"
	"time"
)

const (
	// DefaultMaxTokens is used when the caller does not specify max tokens.
	DefaultMaxTokens = 256
	// DefaultTemperature is used when the caller does not specify temperature.
	DefaultTemperature = 0.0
	// DefaultN is the number of choices requested by default.
	DefaultN = 1
)

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is a set of options for calling models. Not all models support
// all options.
type CallOptions struct {
	// Model overrides the adapter's default model.
	Model string
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int
	// Temperature is the temperature for sampling.
	Temperature float64
	// N is how many choices to generate for each input message.
	N int
	// TopP is the cumulative probability for top-p sampling, omitted when nil.
	TopP *float64
	// FrequencyPenalty is the frequency penalty for sampling, omitted when nil.
	FrequencyPenalty *float64
	// PresencePenalty is the presence penalty for sampling, omitted when nil.
	PresencePenalty *float64
	// StopWords is a list of words to stop on.
	StopWords []string

	// GuidedJSON is a JSON Schema to constrain the output.
	// It is sent as a separate field, the prompt is never replaced.
	GuidedJSON any
	// Extra is passed to the provider as is, and overrides the defaults.
	Extra map[string]any

	// ImagePaths are local images to attach to the last user message.
	ImagePaths []string
	// ReturnError returns transport, response and validation faults
	// as a failed Outcome instead of an error.
	ReturnError bool
	// Timeout is the per call timeout, zero means no timeout
	// beyond the caller's context.
	Timeout time.Duration
}

// DefaultCallOptions returns the options with defaults applied.
func DefaultCallOptions() CallOptions {
	return CallOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		N:           DefaultN,
	}
}

// NewCallOptions returns the defaults, then the model, then the options applied.
func NewCallOptions(model string, options ...CallOption) *CallOptions {
	opts := DefaultCallOptions()
	opts.Model = model
	for _, opt := range options {
		opt(&opts)
	}
	return &opts
}

// WithTimeout returns ctx with the call timeout applied,
// the caller must call cancel.
func (o *CallOptions) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout > 0 {
		return context.WithTimeout(ctx, o.Timeout)
	}
	return context.WithCancel(ctx)
}

// WithOptions specifies options.
// The maps and slices are copied, the options can be shared between calls.
func WithOptions(options CallOptions) CallOption {
	return func(o *CallOptions) {
		(*o) = options
		o.Extra = maps.Clone(options.Extra)
		o.ImagePaths = slices.Clone(options.ImagePaths)
		o.StopWords = slices.Clone(options.StopWords)
	}
}

// WithModel specifies which model name to use.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens specifies the max number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature specifies the model temperature, a hyperparameter that
// regulates the randomness, or creativity, of the AI's responses.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithN will add an option to set how many chat completion choices to generate for each input message.
func WithN(n int) CallOption {
	return func(o *CallOptions) {
		o.N = n
	}
}

// WithTopP will add an option to use top-p sampling.
func WithTopP(topP float64) CallOption {
	return func(o *CallOptions) {
		o.TopP = &topP
	}
}

// WithFrequencyPenalty will add an option to set the frequency penalty for sampling.
func WithFrequencyPenalty(frequencyPenalty float64) CallOption {
	return func(o *CallOptions) {
		o.FrequencyPenalty = &frequencyPenalty
	}
}

// WithPresencePenalty will add an option to set the presence penalty for sampling.
func WithPresencePenalty(presencePenalty float64) CallOption {
	return func(o *CallOptions) {
		o.PresencePenalty = &presencePenalty
	}
}

// WithStopWords specifies a list of words to stop generation on.
func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = stopWords
	}
}

// WithGuidedJSON specifies a JSON Schema for structured output.
func WithGuidedJSON(schema any) CallOption {
	return func(o *CallOptions) {
		o.GuidedJSON = schema
	}
}

// WithExtra adds a provider specific field to the request.
func WithExtra(key string, value any) CallOption {
	return func(o *CallOptions) {
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = value
	}
}

// WithExtras adds provider specific fields to the request.
func WithExtras(extra map[string]any) CallOption {
	return func(o *CallOptions) {
		if o.Extra == nil {
			o.Extra = make(map[string]any, len(extra))
		}
		maps.Copy(o.Extra, extra)
	}
}

// WithImagePaths attaches local images to the last user message.
func WithImagePaths(paths ...string) CallOption {
	return func(o *CallOptions) {
		o.ImagePaths = append(o.ImagePaths, paths...)
	}
}

// WithReturnError specifies to return faults as a failed Outcome.
func WithReturnError(returnError bool) CallOption {
	return func(o *CallOptions) {
		o.ReturnError = returnError
	}
}

// WithTimeout specifies the per call timeout.
func WithTimeout(timeout time.Duration) CallOption {
	return func(o *CallOptions) {
		o.Timeout = timeout
	}
}
