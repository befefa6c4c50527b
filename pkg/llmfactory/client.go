package llmfactory

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/azure"
	"github.com/effective-security/llmfacade/pkg/llms/bedrock"
	"github.com/effective-security/llmfacade/pkg/llms/googleai"
	"github.com/effective-security/llmfacade/pkg/llms/openai"
	"github.com/go-playground/validator/v10"
)

// ClientConfig is the configuration of a single provider client.
type ClientConfig struct {
	Provider llms.ProviderType `validate:"required,oneof=OPENAI AZURE BEDROCK GOOGLEAI"`
	// APIKey is the token, or the access key for Bedrock.
	APIKey string
	// Model is the default model, or the model ID for Bedrock.
	Model string
	// Endpoint is the base URL, required for Azure.
	Endpoint string `validate:"required_if=Provider AZURE"`
	// Region is the AWS region, required for Bedrock.
	Region string `validate:"required_if=Provider BEDROCK"`
	// SecretKey is the AWS secret key for Bedrock.
	SecretKey string
	// SessionToken is the optional AWS session token for Bedrock.
	SessionToken string
	// Deployment is the Azure deployment name.
	Deployment string `validate:"required_if=Provider AZURE"`
	// APIVersion is the Azure API version.
	APIVersion string
	// HTTPClient is used for the transport, http.DefaultClient if not set.
	HTTPClient *http.Client `validate:"-"`
	// Extra fields are sent with every call.
	Extra map[string]any
}

// ClientOption configures the client.
type ClientOption func(*ClientConfig)

// WithEndpoint sets the base URL of OpenAI-compatible, Azure or Gemini API,
// or the Bedrock runtime endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) ClientOption {
	return func(c *ClientConfig) {
		c.Region = region
	}
}

// WithSecretKey sets the AWS secret key.
func WithSecretKey(secretKey string) ClientOption {
	return func(c *ClientConfig) {
		c.SecretKey = secretKey
	}
}

// WithSessionToken sets the AWS session token.
func WithSessionToken(token string) ClientOption {
	return func(c *ClientConfig) {
		c.SessionToken = token
	}
}

// WithDeployment sets the Azure deployment name.
func WithDeployment(deployment string) ClientOption {
	return func(c *ClientConfig) {
		c.Deployment = deployment
	}
}

// WithAPIVersion sets the Azure API version.
func WithAPIVersion(version string) ClientOption {
	return func(c *ClientConfig) {
		c.APIVersion = version
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = client
	}
}

// WithExtra adds a provider specific field sent with every call.
func WithExtra(key string, value any) ClientOption {
	return func(c *ClientConfig) {
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = value
	}
}

var validate = validator.New()

// Validate returns a configuration error if the config is invalid.
func (c *ClientConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return llms.ConfigError("invalid client config: %s", err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if", "required_with":
			msgs = append(msgs, fmt.Sprintf("%s is required", fieldName(fe.Field())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fieldName(fe.Field())))
		}
	}
	return llms.ConfigError("%s: %s", strings.ToLower(c.Provider.String()), strings.Join(msgs, ", "))
}

var fieldNames = map[string]string{
	"Deployment": "deployment name",
	"APIKey":     "API key",
	"SecretKey":  "secret key",
}

func fieldName(f string) string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return strings.ToLower(f)
}

type builder func(ctx context.Context, c *ClientConfig) (llms.Model, error)

var builders = map[llms.ProviderType]builder{
	llms.ProviderOpenAI:   newOpenAI,
	llms.ProviderAzure:    newAzure,
	llms.ProviderBedrock:  newBedrock,
	llms.ProviderGoogleAI: newGoogleAI,
}

// CreateClient returns the model of the provider:
// openai, azure, bedrock or gemini. The provider is case-insensitive.
// Configuration faults are returned before any transport is built.
func CreateClient(ctx context.Context, provider, apiKey, modelName string, opts ...ClientOption) (llms.Model, error) {
	pt, ok := llms.ParseProviderType(provider)
	if !ok {
		return nil, llms.ConfigError("unsupported provider: %q", provider)
	}

	c := &ClientConfig{
		Provider: pt,
		APIKey:   apiKey,
		Model:    modelName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return NewClient(ctx, c)
}

// NewClient returns the model for the config.
func NewClient(ctx context.Context, c *ClientConfig) (llms.Model, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	build, ok := builders[c.Provider]
	if !ok {
		return nil, llms.ConfigError("unsupported provider: %q", c.Provider)
	}

	model, err := build(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(c.Extra) > 0 {
		model = WithCallOptions(model, llms.WithExtras(c.Extra))
	}
	return model, nil
}

func newOpenAI(_ context.Context, c *ClientConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(c.APIKey),
		openai.WithModel(c.Model),
	}
	if c.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(c.Endpoint))
	}
	if c.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(c.HTTPClient))
	}
	return openai.New(opts...)
}

func newAzure(_ context.Context, c *ClientConfig) (llms.Model, error) {
	opts := []azure.Option{
		azure.WithEndpoint(c.Endpoint),
		azure.WithToken(c.APIKey),
		azure.WithDeployment(c.Deployment),
		azure.WithModel(c.Model),
	}
	if c.APIVersion != "" {
		opts = append(opts, azure.WithAPIVersion(c.APIVersion))
	}
	if c.HTTPClient != nil {
		opts = append(opts, azure.WithHTTPClient(c.HTTPClient))
	}
	return azure.New(opts...)
}

func newBedrock(ctx context.Context, c *ClientConfig) (llms.Model, error) {
	opts := []bedrock.Option{
		bedrock.WithRegion(c.Region),
		bedrock.WithModel(c.Model),
	}

	if c.APIKey == "" {
		// no keys, use the default credential chain
		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(c.Region),
			config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
		}
		if c.HTTPClient != nil {
			loadOpts = append(loadOpts, config.WithHTTPClient(c.HTTPClient))
		}
		awscfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "bedrock: failed to load AWS config"), llms.ErrConfiguration)
		}
		client := bedrockruntime.NewFromConfig(awscfg, func(o *bedrockruntime.Options) {
			if c.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.Endpoint)
			}
		})
		return bedrock.New(append(opts, bedrock.WithClient(client))...)
	}

	opts = append(opts, bedrock.WithCredentials(c.APIKey, c.SecretKey, c.SessionToken))
	if c.Endpoint != "" {
		opts = append(opts, bedrock.WithEndpoint(c.Endpoint))
	}
	if c.HTTPClient != nil {
		opts = append(opts, bedrock.WithHTTPClient(c.HTTPClient))
	}
	return bedrock.New(opts...)
}

func newGoogleAI(ctx context.Context, c *ClientConfig) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(c.APIKey),
		googleai.WithDefaultModel(c.Model),
	}
	if c.Endpoint != "" {
		opts = append(opts, googleai.WithBaseURL(c.Endpoint))
	}
	if c.HTTPClient != nil {
		opts = append(opts, googleai.WithHTTPClient(c.HTTPClient))
	}
	return googleai.New(ctx, opts...)
}
