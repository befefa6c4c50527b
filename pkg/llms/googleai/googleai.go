// Package googleai implements a provider for Google Gemini models,
// over the Gemini API or Vertex AI.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/googleai/internal/genaiutils"
	"github.com/effective-security/llmfacade/pkg/llms/internal/callstats"
	"github.com/effective-security/llmfacade/pkg/llmutils"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"google.golang.org/genai"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/llmfacade", "googleai")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "v1beta"
	vertexVersion  = "v1beta1"
)

// GoogleAI is a type that represents a Google AI API client.
type GoogleAI struct {
	client    *genai.Client
	opts      Options
	modelsURL string
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &genai.ClientConfig{
		APIKey:     o.APIKey,
		HTTPClient: o.HTTPClient,
		Backend:    genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: o.BaseURL,
		},
	}

	var modelsURL string
	if o.Vertex {
		if o.CloudProject == "" || o.CloudLocation == "" {
			return nil, llms.ConfigError("googleai: project and location are required for Vertex AI")
		}
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = o.CloudProject
		cfg.Location = o.CloudLocation
		cfg.Credentials = o.Credentials

		base := values.StringsCoalesce(o.BaseURL, fmt.Sprintf("https://%s-aiplatform.googleapis.com", o.CloudLocation))
		modelsURL = fmt.Sprintf("%s/%s/projects/%s/locations/%s/publishers/google/models",
			strings.TrimRight(base, "/"), vertexVersion, o.CloudProject, o.CloudLocation)
	} else {
		if o.APIKey == "" {
			return nil, llms.ConfigError("googleai: API key is required")
		}
		base := values.StringsCoalesce(o.BaseURL, defaultBaseURL)
		modelsURL = fmt.Sprintf("%s/%s/models", strings.TrimRight(base, "/"), apiVersion)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "googleai: failed to create client"), llms.ErrConfiguration)
	}

	return &GoogleAI{
		client:    client,
		opts:      o,
		modelsURL: modelsURL,
	}, nil
}

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// URL returns the URL of the model method, like generateContent.
func (g *GoogleAI) URL(model, method string) string {
	return g.modelsURL + "/" + model + ":" + method
}

// Complete implements the Model interface,
// the prompt is sent as a single user message.
func (g *GoogleAI) Complete(ctx context.Context, prompt string, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(g.opts.DefaultModel, options...)
	return g.generate(ctx, callstats.OpComplete, []llms.Message{llms.UserMessage(prompt)}, opts)
}

// Chat implements the Model interface.
func (g *GoogleAI) Chat(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(g.opts.DefaultModel, options...)
	msgs, err := llmutils.InjectImages(messages, opts.ImagePaths, llmutils.ShapeRawBytes)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}
	return g.generate(ctx, callstats.OpChat, msgs, opts)
}

// Vision implements the Model interface, images are sent as inline data.
func (g *GoogleAI) Vision(ctx context.Context, prompt string, imagePaths []string, options ...llms.CallOption) (llms.Outcome, error) {
	opts := llms.NewCallOptions(g.opts.DefaultModel, options...)
	msgs, err := llmutils.VisionMessages(prompt, slices.Concat(imagePaths, opts.ImagePaths), llmutils.ShapeRawBytes)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}
	return g.generate(ctx, callstats.OpChat, msgs, opts)
}

func (g *GoogleAI) request(msgs []llms.Message, opts *llms.CallOptions) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, history, err := genaiutils.ConvertMessages(msgs)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := genaiutils.Config(opts)
	if err != nil {
		return nil, nil, err
	}
	cfg.SystemInstruction = system
	return history, cfg, nil
}

func (g *GoogleAI) generate(ctx context.Context, op string, msgs []llms.Message, opts *llms.CallOptions) (llms.Outcome, error) {
	if err := llms.ValidateMessages(msgs); err != nil {
		return llms.Outcome{}, err
	}
	history, cfg, err := g.request(msgs, opts)
	if err != nil {
		return llms.Resolve("", err, opts.ReturnError)
	}

	ctx, cancel := opts.WithTimeout(ctx)
	defer cancel()

	u := g.URL(opts.Model, "generateContent")
	logger.ContextKV(ctx, xlog.DEBUG, "url", u)

	stats := callstats.Start(llms.ProviderGoogleAI, opts.Model, op, msgs)
	var text string
	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, cfg)
	if err == nil {
		text, err = genaiutils.Text(resp)
	}
	if err != nil {
		err = describe(err, u)
		logger.ContextKV(ctx, xlog.ERROR,
			"model", opts.Model,
			"operation", op,
			"err", err.Error())
	}
	stats.Done(text, err)
	return llms.Resolve(text, err, opts.ReturnError)
}

// ChatStream implements the Model interface.
func (g *GoogleAI) ChatStream(ctx context.Context, messages []llms.Message, options ...llms.CallOption) iter.Seq2[string, error] {
	opts := llms.NewCallOptions(g.opts.DefaultModel, options...)
	msgs, err := llmutils.InjectImages(messages, opts.ImagePaths, llmutils.ShapeRawBytes)
	if err == nil {
		err = llms.ValidateMessages(msgs)
	}
	if err != nil {
		return llms.ErrorStream(err)
	}
	history, cfg, err := g.request(msgs, opts)
	if err != nil {
		return llms.ErrorStream(err)
	}

	return llms.SingleUse(func(yield func(string, error) bool) {
		ctx, cancel := opts.WithTimeout(ctx)
		defer cancel()

		u := g.URL(opts.Model, "streamGenerateContent")
		logger.ContextKV(ctx, xlog.DEBUG, "url", u)

		stats := callstats.Start(llms.ProviderGoogleAI, opts.Model, callstats.OpChatStream, msgs)
		var failed error
		for resp, err := range g.client.Models.GenerateContentStream(ctx, opts.Model, history, cfg) {
			if err != nil {
				failed = describe(err, u)
				logger.ContextKV(ctx, xlog.ERROR,
					"model", opts.Model,
					"operation", callstats.OpChatStream,
					"err", failed.Error())
				yield("", failed)
				break
			}
			chunk := genaiutils.DeltaText(resp)
			if chunk == "" {
				continue
			}
			stats.Chunk(chunk)
			if !yield(chunk, nil) {
				break
			}
		}
		stats.Done("", failed)
	})
}

func describe(err error, u string) *llms.ErrorDetail {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return llms.NewTransportError(u, http.MethodPost, apiErr.Code, apiErr.Message, err)
	}
	return llms.Describe(err, u, http.MethodPost)
}
