package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
)

// Config is the configuration of the providers.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
}

// ProviderConfig is the configuration of a provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	// Provider specifies the type of provider:
	// OPENAI|AZURE|BEDROCK|GEMINI
	Provider string `json:"provider" yaml:"provider"`
	// Token is the API key, or the AWS access key for Bedrock.
	// Bedrock uses the default AWS credentials chain when empty.
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	SecretKey       string   `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	SessionToken    string   `json:"session_token,omitempty" yaml:"session_token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`

	Endpoint   string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region     string `json:"region,omitempty" yaml:"region,omitempty"`
	Deployment string `json:"deployment,omitempty" yaml:"deployment,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// Extra fields are sent with every call.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// FindModel returns the first available model,
// or the default model if none of the models is available.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// ClientOptions returns the client options for the provider.
func (c *ProviderConfig) ClientOptions() []ClientOption {
	opts := []ClientOption{
		WithEndpoint(c.Endpoint),
		WithRegion(c.Region),
		WithSecretKey(c.SecretKey),
		WithSessionToken(c.SessionToken),
		WithDeployment(c.Deployment),
		WithAPIVersion(c.APIVersion),
	}
	for k, v := range c.Extra {
		opts = append(opts, WithExtra(k, v))
	}
	return opts
}

// LoadConfig from file, the environment variables are expanded
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
