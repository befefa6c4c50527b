// Package azure implements the Model interface for Azure OpenAI deployments.
package azure

import (
	"context"
	"iter"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/internal/openaiclient"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/llmfacade", "azure")

// LLM is an Azure OpenAI deployment.
type LLM struct {
	runner     *openaiclient.Runner
	deployment string
}

var (
	_ llms.Model              = (*LLM)(nil)
	_ llms.CompletionStreamer = (*LLM)(nil)
)

// New returns a new Azure OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.deployment == "" {
		return nil, llms.ConfigError("azure: deployment name is required")
	}
	if o.endpoint == "" {
		return nil, llms.ConfigError("azure: endpoint is required")
	}

	apiVersion := values.StringsCoalesce(o.apiVersion, DefaultAPIVersion)
	c := openaiclient.New(
		openaiclient.AzureRouter(o.endpoint, o.deployment, apiVersion),
		openaiclient.APIKeyAuth(o.token),
		o.httpClient,
	)

	logger.KV(xlog.DEBUG,
		"endpoint", o.endpoint,
		"deployment", o.deployment,
		"api_version", apiVersion)

	return &LLM{
		runner: &openaiclient.Runner{
			Client:   c,
			Provider: llms.ProviderAzure,
			Model:    o.model,
			Name:     o.deployment,
		},
		deployment: o.deployment,
	}, nil
}

// GetProviderType implements the Model interface.
func (a *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAzure
}

// GetName implements the Model interface.
func (a *LLM) GetName() string {
	return values.StringsCoalesce(a.runner.Model, a.deployment)
}

// Deployment returns the deployment name.
func (a *LLM) Deployment() string {
	return a.deployment
}

// URL returns the endpoint URL for the suffix, like /chat/completions
func (a *LLM) URL(suffix string) string {
	return a.runner.Client.URL(suffix)
}

// Complete implements the Model interface.
func (a *LLM) Complete(ctx context.Context, prompt string, options ...llms.CallOption) (llms.Outcome, error) {
	return a.runner.Complete(ctx, prompt, options...)
}

// CompleteStream streams the text of /completions.
func (a *LLM) CompleteStream(ctx context.Context, prompt string, options ...llms.CallOption) iter.Seq2[string, error] {
	return a.runner.CompleteStream(ctx, prompt, options...)
}

// Chat implements the Model interface.
func (a *LLM) Chat(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.Outcome, error) {
	return a.runner.Chat(ctx, messages, options...)
}

// ChatStream implements the Model interface.
func (a *LLM) ChatStream(ctx context.Context, messages []llms.Message, options ...llms.CallOption) iter.Seq2[string, error] {
	return a.runner.ChatStream(ctx, messages, options...)
}

// Vision implements the Model interface.
func (a *LLM) Vision(ctx context.Context, prompt string, imagePaths []string, options ...llms.CallOption) (llms.Outcome, error) {
	return a.runner.Vision(ctx, prompt, imagePaths, options...)
}
