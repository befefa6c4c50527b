package googleai

import (
	"net/http"

	"cloud.google.com/go/auth"
)

// DefaultModel is used when no model is provided.
const DefaultModel = "gemini-2.5-flash"

// Options is a set of options for GoogleAI and Vertex clients.
type Options struct {
	APIKey       string
	DefaultModel string
	BaseURL      string
	HTTPClient   *http.Client

	// Vertex AI backend
	Vertex        bool
	CloudProject  string
	CloudLocation string
	Credentials   *auth.Credentials
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		DefaultModel: DefaultModel,
	}
}

// Option is a functional option for the GoogleAI client.
type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
// It is required for the Gemini API backend.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithDefaultModel passes a default content model name to the client. This
// model name is used if not explicitly provided in specific client invocations.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		if defaultModel != "" {
			opts.DefaultModel = defaultModel
		}
	}
}

// WithHTTPClient append a ClientOption that uses the provided HTTP client to
// make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithBaseURL overrides the API base URL,
// https://generativelanguage.googleapis.com/ by default.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithVertex uses the Vertex AI backend for the GCP project and location.
// When credentials are nil, the default credentials are used.
func WithVertex(project, location string, credentials *auth.Credentials) Option {
	return func(opts *Options) {
		opts.Vertex = true
		opts.CloudProject = project
		opts.CloudLocation = location
		opts.Credentials = credentials
	}
}
