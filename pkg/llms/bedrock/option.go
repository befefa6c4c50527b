package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultModel is used when no model is provided.
const DefaultModel = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

// Option is an option for the Bedrock LLM.
type Option func(*options)

type options struct {
	region       string
	accessKey    string
	secretKey    string
	sessionToken string
	modelID      string
	endpoint     string
	httpClient   bedrockruntime.HTTPClient
	client       *bedrockruntime.Client
}

// WithRegion sets the AWS region, required unless a client is provided.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithCredentials sets the static AWS credentials.
// The session token is optional.
func WithCredentials(accessKey, secretKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
		o.sessionToken = sessionToken
	}
}

// WithModel allows setting a custom model ID.
//
// If not set, the default model is used
// i.e. "us.anthropic.claude-3-7-sonnet-20250219-v1:0".
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithEndpoint overrides the regional runtime endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client bedrockruntime.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithClient allows setting a custom bedrockruntime.Client.
//
// You may use this to pass a custom bedrockruntime.Client
// with a custom configuration, or credentials from the default chain.
// Region, credentials and endpoint options are ignored.
func WithClient(client *bedrockruntime.Client) Option {
	return func(o *options) {
		o.client = client
	}
}
