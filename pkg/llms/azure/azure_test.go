package azure_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llms/azure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := azure.New(azure.WithEndpoint("https://res.openai.azure.com"), azure.WithToken("k"))
	require.Error(t, err)
	assert.True(t, llms.IsConfigurationError(err))
	assert.EqualError(t, err, "azure: deployment name is required")

	_, err = azure.New(azure.WithDeployment("d"))
	assert.True(t, llms.IsConfigurationError(err))

	llm, err := azure.New(
		azure.WithEndpoint("https://res.openai.azure.com/"),
		azure.WithDeployment("gpt4o-prod"),
		azure.WithToken("k"),
	)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAzure, llm.GetProviderType())
	assert.Equal(t, "gpt4o-prod", llm.GetName())
	assert.Equal(t, "gpt4o-prod", llm.Deployment())
	assert.Equal(t,
		"https://res.openai.azure.com/openai/deployments/gpt4o-prod/chat/completions?api-version=2024-02-15-preview",
		llm.URL("/chat/completions"))

	llm, err = azure.New(
		azure.WithEndpoint("https://res.openai.azure.com"),
		azure.WithDeployment("d"),
		azure.WithModel("gpt-4o"),
		azure.WithAPIVersion("2024-10-21"),
	)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", llm.GetName())
	assert.Equal(t, "https://res.openai.azure.com/openai/deployments/d/completions?api-version=2024-10-21", llm.URL("/completions"))
}

func TestChat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/dep1/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.False(t, gjson.GetBytes(body, "model").Exists())
		assert.Equal(t, 0.5, gjson.GetBytes(body, "frequency_penalty").Float())
		assert.Equal(t, 0.25, gjson.GetBytes(body, "presence_penalty").Float())
		assert.Equal(t, "string", gjson.GetBytes(body, "guided_json.type").String())
		assert.EqualValues(t, 256, gjson.GetBytes(body, "max_tokens").Int())
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"hello from azure"}}]}`)
	}))
	defer srv.Close()

	llm, err := azure.New(
		azure.WithEndpoint(srv.URL),
		azure.WithDeployment("dep1"),
		azure.WithAPIVersion("2024-06-01"),
		azure.WithToken("secret"),
		azure.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	out, err := llm.Chat(context.Background(), []llms.Message{llms.UserMessage("hi")},
		llms.WithFrequencyPenalty(0.5),
		llms.WithPresencePenalty(0.25),
		llms.WithGuidedJSON(map[string]any{"type": "string"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "hello from azure", out.String())
}

func TestComplete_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("api-version") {
		case "shape":
			_, _ = io.WriteString(w, `{"object":"text_completion"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"DeploymentNotFound","message":"The API deployment for this resource does not exist."}}`)
		}
	}))
	defer srv.Close()

	llm, err := azure.New(azure.WithEndpoint(srv.URL), azure.WithDeployment("missing"), azure.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	out, err := llm.Complete(context.Background(), "hi", llms.WithReturnError(true))
	require.NoError(t, err)
	require.False(t, out.OK())
	assert.Equal(t, 404, out.Err().StatusCode)
	assert.Equal(t, "Not Found - The requested endpoint does not exist", out.Err().ErrorType)
	assert.Equal(t, "The API deployment for this resource does not exist.", out.Err().Message)

	llm, err = azure.New(azure.WithEndpoint(srv.URL), azure.WithDeployment("d"), azure.WithAPIVersion("shape"), azure.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	out, err = llm.Complete(context.Background(), "hi", llms.WithReturnError(true))
	require.NoError(t, err)
	require.False(t, out.OK())
	assert.Equal(t, llms.KindResponse, out.Err().Kind)
	assert.Equal(t, "Response parsing error", out.Err().ErrorType)
}

func TestChatStream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.GetBytes(body, "stream").Bool())
		w.Header().Set("Content-Type", "text/event-stream")
		// Azure sends an initial chunk with prompt filter results and no choices
		_, _ = fmt.Fprint(w, "data: {\"choices\":[],\"prompt_filter_results\":[]}\n\n")
		for _, c := range []string{"one", " two", " three"} {
			_, _ = fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	llm, err := azure.New(azure.WithEndpoint(srv.URL), azure.WithDeployment("d"), azure.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	var got []string
	for chunk, err := range llm.ChatStream(context.Background(), []llms.Message{llms.UserMessage("count")}) {
		require.NoError(t, err)
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"one", " two", " three"}, got)
}
