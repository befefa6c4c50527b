package llms_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code       int
		errorType  string
		suggestion string
	}{
		{400, "Bad Request - The request was malformed or contains invalid parameters", "Check the request parameters and payload format"},
		{401, "Unauthorized - Authentication failed, check your API key", "Verify your API key and permissions"},
		{403, "Forbidden - You don't have permission to access this resource", "Verify your API key and permissions"},
		{404, "Not Found - The requested endpoint does not exist", "Verify the API endpoint URL"},
		{429, "Too Many Requests - Rate limit exceeded, try again later", "Wait before sending more requests or implement rate limiting"},
		{500, "Internal Server Error - Server error, try again later", "Try again later or contact the API provider"},
		{502, "Bad Gateway - Gateway error, try again later", "Try again later or contact the API provider"},
		{503, "Service Unavailable - Server temporarily unavailable, try again later", "Try again later or contact the API provider"},
		{504, "Gateway Timeout - Request timed out, try again later", "Try again later or contact the API provider"},
		{501, "HTTP Error 501", "Try again later or contact the API provider"},
		{599, "HTTP Error 599", "Try again later or contact the API provider"},
		{0, llms.ErrorTypeNetwork, llms.SuggestionNetwork},
		{418, "HTTP Error 418", ""},
		{302, "HTTP Error 302", ""},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d", tc.code), func(t *testing.T) {
			t.Parallel()
			typ, sug := llms.Classify(tc.code)
			assert.Equal(t, tc.errorType, typ)
			assert.Equal(t, tc.suggestion, sug)
		})
	}

	t.Run("table codes have suggestion", func(t *testing.T) {
		for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
			_, sug := llms.Classify(code)
			assert.NotEmpty(t, sug, "code %d", code)
		}
	})
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		code       int
		errorType  string
		message    string
		suggestion string
		exp        string
	}{
		{
			name:       "all",
			code:       429,
			errorType:  "Too Many",
			message:    "slow down",
			suggestion: "Wait",
			exp:        "API POST request to 'http://x/chat' failed with status code 429 (Too Many): slow down. Wait",
		},
		{
			name: "no status",
			exp:  "API POST request to 'http://x/chat' failed",
		},
		{
			name:       "no status with suggestion",
			errorType:  llms.ErrorTypeNetwork,
			message:    "connection refused",
			suggestion: llms.SuggestionNetwork,
			exp:        "API POST request to 'http://x/chat' failed: connection refused. " + llms.SuggestionNetwork,
		},
		{
			name:      "no message",
			code:      404,
			errorType: "Not Found",
			exp:       "API POST request to 'http://x/chat' failed with status code 404 (Not Found)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.exp, llms.BuildMessage("http://x/chat", "POST", tc.code, tc.errorType, tc.message, tc.suggestion))
		})
	}
}

func TestErrorDetail(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	d := llms.NewTransportError("http://h/v1/chat/completions", "POST", 401, "bad key", cause)
	assert.Equal(t, llms.KindTransport, d.Kind)
	assert.True(t, d.HasStatus())
	assert.Equal(t, "Unauthorized - Authentication failed, check your API key", d.ErrorType)
	assert.Equal(t, "API POST request to 'http://h/v1/chat/completions' failed with status code 401 (Unauthorized - Authentication failed, check your API key): bad key. Verify your API key and permissions", d.Error())
	assert.True(t, errors.Is(d, cause))

	m := d.Details()
	assert.Equal(t, 401, m["status_code"])
	assert.Equal(t, "POST", m["method"])

	nd := llms.NewTransportError("http://h", "POST", 0, "refused", nil)
	assert.Nil(t, nd.Details()["status_code"])
	assert.False(t, nd.HasStatus())
	assert.Equal(t, llms.ErrorTypeNetwork, nd.ErrorType)

	rd := llms.NewResponseError("http://h", "POST", 200, "missing choices")
	assert.Equal(t, llms.KindResponse, rd.Kind)
	assert.Equal(t, llms.ErrorTypeResponse, rd.ErrorType)
	assert.True(t, errors.Is(rd, llms.ErrResponseShape))
}

type statusErr struct{ code int }

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatusCode() int { return e.code }

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Nil(t, llms.Describe(nil, "u", "POST"))

	d := llms.NewTransportError("u", "POST", 500, "x", nil)
	assert.Same(t, d, llms.Describe(errors.Wrap(d, "wrapped"), "other", "GET"))

	tests := []struct {
		name string
		err  error
		kind llms.Kind
		typ  string
		code int
	}{
		{"not found", errors.Mark(errors.New("The following image files were not found: a"), llms.ErrImageNotFound), llms.KindValidation, llms.ErrorTypeValidation, 0},
		{"encoding", errors.Mark(errors.New("Failed to encode image"), llms.ErrImageEncoding), llms.KindEncoding, llms.ErrorTypeEncoding, 0},
		{"shape", errors.Wrap(llms.ErrResponseShape, "no choices"), llms.KindResponse, llms.ErrorTypeResponse, 0},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "call"), llms.KindTransport, llms.ErrorTypeNetwork, 0},
		{"canceled", context.Canceled, llms.KindTransport, llms.ErrorTypeNetwork, 0},
		{"status", errors.Wrap(statusErr{code: 403}, "sdk"), llms.KindTransport, "Forbidden - You don't have permission to access this resource", 403},
		{"other", errors.New("weird"), llms.KindUnexpected, llms.ErrorTypeUnexpected, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := llms.Describe(tc.err, "http://h", "POST")
			require.NotNil(t, d)
			assert.Equal(t, tc.kind, d.Kind)
			assert.Equal(t, tc.typ, d.ErrorType)
			assert.Equal(t, tc.code, d.StatusCode)
			assert.Equal(t, "http://h", d.URL)
			assert.NotEmpty(t, d.Suggestion)
		})
	}
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	err := llms.ConfigError("azure requires deployment")
	assert.True(t, llms.IsConfigurationError(err))
	assert.EqualError(t, err, "azure requires deployment")
	assert.False(t, llms.IsConfigurationError(errors.New("x")))
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "transport", llms.KindTransport.String())
	assert.Equal(t, "processing", llms.KindProcessing.String())
	assert.Equal(t, "kind(42)", llms.Kind(42).String())
}
