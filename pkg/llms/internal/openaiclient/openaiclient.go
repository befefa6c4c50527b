// Package openaiclient is the wire client for OpenAI-compatible
// completions and chat completions, shared by the OpenAI and Azure adapters.
package openaiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/llmfacade", "openaiclient")

const (
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultAzureAPIVersion is the api-version for Azure OpenAI.
	DefaultAzureAPIVersion = "2024-02-15-preview"

	// SuffixCompletions is the text completion endpoint.
	SuffixCompletions = "/completions"
	// SuffixChatCompletions is the chat completion endpoint.
	SuffixChatCompletions = "/chat/completions"
)

// Response paths
const (
	PathCompletionText = "choices.0.text"
	PathMessageContent = "choices.0.message.content"
	PathDeltaContent   = "choices.0.delta.content"
)

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Router returns the URL for the endpoint suffix.
type Router func(suffix string) string

// Authorizer sets the authentication headers.
type Authorizer func(req *http.Request)

// Client is a client for OpenAI-compatible API.
type Client struct {
	router     Router
	auth       Authorizer
	httpClient Doer
}

// New returns a new client.
func New(router Router, auth Authorizer, httpClient Doer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		router:     router,
		auth:       auth,
		httpClient: httpClient,
	}
}

// BaseURLRouter returns a router for OpenAI API: {baseURL}{suffix}
func BaseURLRouter(baseURL string) Router {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return func(suffix string) string {
		return baseURL + suffix
	}
}

// AzureRouter returns a router for Azure OpenAI:
// {endpoint}/openai/deployments/{deployment}{suffix}?api-version={apiVersion}
func AzureRouter(endpoint, deployment, apiVersion string) Router {
	endpoint = strings.TrimRight(endpoint, "/")
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}
	return func(suffix string) string {
		return fmt.Sprintf("%s/openai/deployments/%s%s?api-version=%s",
			endpoint, deployment, suffix, apiVersion,
		)
	}
}

// BearerAuth sets Authorization header, and OpenAI-Organization if provided.
func BearerAuth(token, organization string) Authorizer {
	return func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if organization != "" {
			req.Header.Set("OpenAI-Organization", organization)
		}
	}
}

// APIKeyAuth sets api-key header.
func APIKeyAuth(key string) Authorizer {
	return func(req *http.Request) {
		req.Header.Set("api-key", key)
	}
}

// URL returns the endpoint URL for the suffix.
func (c *Client) URL(suffix string) string {
	return c.router(suffix)
}

func (c *Client) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.auth != nil {
		c.auth(req)
	}
}

// send posts the payload and returns the response with 2xx status,
// the caller must close the body.
func (c *Client) send(ctx context.Context, u string, payload []byte, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, llms.NewTransportError(u, http.MethodPost, 0, err.Error(), err)
	}
	c.setHeaders(req, stream)

	logger.ContextKV(ctx, xlog.DEBUG, "url", u, "stream", stream, "size", len(payload))

	r, err := c.httpClient.Do(req)
	if err != nil {
		return nil, llms.NewTransportError(u, http.MethodPost, 0, err.Error(), err)
	}

	if r.StatusCode < 200 || r.StatusCode >= 300 {
		defer func() { _ = r.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(r.Body, 64*1024))
		msg := ErrorMessage(body)
		logger.ContextKV(ctx, xlog.ERROR,
			"url", u,
			"status", r.StatusCode,
			"err", msg)
		return nil, llms.NewTransportError(u, http.MethodPost, r.StatusCode, msg, nil)
	}
	return r, nil
}

// Post sends the payload to the endpoint and returns the text at the path
// in the response.
func (c *Client) Post(ctx context.Context, suffix string, payload []byte, path string) (string, error) {
	u := c.router(suffix)
	r, err := c.send(ctx, u, payload, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", llms.NewTransportError(u, http.MethodPost, r.StatusCode, err.Error(), err)
	}
	return Unwrap(u, r.StatusCode, body, path)
}

// CreateCompletion returns the text of the first completion choice.
func (c *Client) CreateCompletion(ctx context.Context, payload []byte) (string, error) {
	return c.Post(ctx, SuffixCompletions, payload, PathCompletionText)
}

// CreateChat returns the message content of the first chat choice.
func (c *Client) CreateChat(ctx context.Context, payload []byte) (string, error) {
	return c.Post(ctx, SuffixChatCompletions, payload, PathMessageContent)
}

// Unwrap returns the string at the path in the response body.
func Unwrap(u string, statusCode int, body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", llms.NewResponseError(u, http.MethodPost, statusCode, "invalid JSON in response")
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return "", llms.NewResponseError(u, http.MethodPost, statusCode, "missing "+path+" in response")
	}
	return res.String(), nil
}

// ErrorMessage returns error.message from the error body,
// or the body itself.
func ErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
			return msg.String()
		}
		if msg := gjson.GetBytes(body, "message"); msg.Exists() {
			return msg.String()
		}
	}
	return strings.TrimSpace(string(body))
}
