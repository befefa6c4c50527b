package azure

import (
	"github.com/effective-security/llmfacade/pkg/llms/internal/openaiclient"
)

// DefaultAPIVersion is the api-version query parameter used when not set.
const DefaultAPIVersion = openaiclient.DefaultAzureAPIVersion

type options struct {
	endpoint   string
	token      string
	deployment string
	apiVersion string
	model      string
	httpClient openaiclient.Doer
}

// Option is a functional option for the Azure OpenAI client.
type Option func(*options)

// WithEndpoint sets the resource endpoint, like https://{resource}.openai.azure.com
func WithEndpoint(endpoint string) Option {
	return func(opts *options) {
		opts.endpoint = endpoint
	}
}

// WithToken sets the API key, sent in api-key header.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithDeployment sets the deployment name, required.
func WithDeployment(deployment string) Option {
	return func(opts *options) {
		opts.deployment = deployment
	}
}

// WithAPIVersion sets the api-version.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) {
		opts.apiVersion = apiVersion
	}
}

// WithModel sets the model name sent in the payload.
// If not set, the deployment name is reported as the model.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client openaiclient.Doer) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}
