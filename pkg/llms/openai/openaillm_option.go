package openai

import (
	"github.com/effective-security/llmfacade/pkg/llms/internal/openaiclient"
)

// DefaultModel is used when no model is provided.
const DefaultModel = "gpt-4o-mini"

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	httpClient   openaiclient.Doer
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the OpenAI API token to the client.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the default model to the client.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the base url to the client. If not set,
// https://api.openai.com/v1 is used.
// Any OpenAI-compatible server, like vLLM or Ollama, can be used.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set, the default value
// is http.DefaultClient.
func WithHTTPClient(client openaiclient.Doer) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}
