package bedrockclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/llmfacade", "bedrock")

// EventReader is the stream of Converse events.
type EventReader interface {
	Events() <-chan types.ConverseStreamOutput
	Close() error
	Err() error
}

// Runtime is the subset of the Bedrock runtime API used by the client.
type Runtime interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (EventReader, error)
}

type sdkRuntime struct {
	client *bedrockruntime.Client
}

// NewRuntime returns Runtime for the SDK client.
func NewRuntime(client *bedrockruntime.Client) Runtime {
	return &sdkRuntime{client: client}
}

func (r *sdkRuntime) Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	return r.client.Converse(ctx, in)
}

func (r *sdkRuntime) ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (EventReader, error) {
	out, err := r.client.ConverseStream(ctx, in)
	if err != nil {
		return nil, err
	}
	stream := out.GetStream()
	if stream == nil {
		return nil, errors.New("no stream")
	}
	return stream, nil
}

// Client is a Bedrock client.
type Client struct {
	rt       Runtime
	endpoint string
}

// NewClient creates a new Bedrock client,
// the endpoint is used to report the failed requests.
func NewClient(rt Runtime, endpoint string) *Client {
	return &Client{
		rt:       rt,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// DefaultEndpoint returns the regional runtime endpoint.
func DefaultEndpoint(region string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region)
}

// URL returns the URL of the model operation, like converse or converse-stream.
func (c *Client) URL(modelID, op string) string {
	return fmt.Sprintf("%s/model/%s/%s", c.endpoint, modelID, op)
}

func getProvider(modelID string) string {
	// Handle Inference Profiles (e.g., "us.anthropic.claude-3-5-sonnet-20241022-v2:0")
	// and direct model IDs (e.g., "anthropic.claude-3-sonnet-20240229-v1:0")
	parts := strings.Split(modelID, ".")
	if len(parts) >= 2 {
		// Check if first part is a region (like "us", "eu", etc.)
		if len(parts[0]) == 2 && strings.ToLower(parts[0]) == parts[0] {
			return parts[1]
		}
		return parts[0]
	}
	return parts[0]
}

// transportError converts SDK error to ErrorDetail
func transportError(u string, err error) *llms.ErrorDetail {
	var detail *llms.ErrorDetail
	if errors.As(err, &detail) {
		return detail
	}

	status := 0
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status = re.HTTPStatusCode()
	}

	msg := err.Error()
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.ErrorMessage()
		if msg == "" {
			msg = apiErr.ErrorCode()
		}
	}
	return llms.NewTransportError(u, http.MethodPost, status, msg, err)
}
