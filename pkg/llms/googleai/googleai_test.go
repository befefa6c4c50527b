package googleai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	generatePath = "/v1beta/models/gemini-2.5-flash:generateContent"
	streamPath   = "/v1beta/models/gemini-2.5-flash:streamGenerateContent"
)

type fakeServer struct {
	*httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value
}

func newFakeServer(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		fs.lastBody.Store(body)
		h(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) body() string {
	b, _ := fs.lastBody.Load().([]byte)
	return string(b)
}

func newTestLLM(t *testing.T, fs *fakeServer, opts ...Option) *GoogleAI {
	t.Helper()
	g, err := New(context.Background(), append([]Option{
		WithAPIKey("test-key"),
		WithBaseURL(fs.URL),
		WithHTTPClient(fs.Client()),
	}, opts...)...)
	require.NoError(t, err)
	return g
}

func textResponse(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"`+text+`"}]},"finishReason":"STOP"}]}`)
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background())
	require.Error(t, err)
	assert.True(t, llms.IsConfigurationError(err))
	assert.EqualError(t, err, "googleai: API key is required")

	_, err = New(context.Background(), WithVertex("", "us-central1", nil))
	require.Error(t, err)
	assert.True(t, llms.IsConfigurationError(err))

	g, err := New(context.Background(), WithAPIKey("key"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.GetName())
	assert.Equal(t, llms.ProviderGoogleAI, g.GetProviderType())
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent",
		g.URL(g.GetName(), "generateContent"))

	g, err = New(context.Background(),
		WithVertex("proj", "us-central1", nil),
		WithHTTPClient(http.DefaultClient),
		WithDefaultModel("gemini-2.5-pro"),
	)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", g.GetName())
	assert.Equal(t, "https://us-central1-aiplatform.googleapis.com/v1beta1/projects/proj/locations/us-central1/publishers/google/models/gemini-2.5-pro:generateContent",
		g.URL(g.GetName(), "generateContent"))
}

func TestChat(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, generatePath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		textResponse(w, "Paris")
	})
	g := newTestLLM(t, fs)

	out, err := g.Chat(context.Background(), []llms.Message{
		llms.SystemMessage("answer in one word"),
		llms.UserMessage("capital of France?"),
		llms.AssistantMessage("Paris"),
		llms.UserMessage("again?"),
	}, llms.WithMaxTokens(20), llms.WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, "Paris", out.String())

	body := fs.body()
	assert.Equal(t, "answer in one word", gjson.Get(body, "systemInstruction.parts.0.text").String())
	assert.Equal(t, int64(3), gjson.Get(body, "contents.#").Int())
	assert.Equal(t, "user", gjson.Get(body, "contents.0.role").String())
	assert.Equal(t, "model", gjson.Get(body, "contents.1.role").String())
	assert.Equal(t, "again?", gjson.Get(body, "contents.2.parts.0.text").String())
	assert.Equal(t, int64(20), gjson.Get(body, "generationConfig.maxOutputTokens").Int())
	assert.InDelta(t, 0.2, gjson.Get(body, "generationConfig.temperature").Float(), 0.0001)
}

func TestComplete_GuidedJSON(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		textResponse(w, `{\"city\":\"Paris\"}`)
	})
	g := newTestLLM(t, fs)

	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
	}
	out, err := g.Complete(context.Background(), "capital of France?",
		llms.WithGuidedJSON(schema),
		llms.WithExtra("topK", 3),
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Paris"}`, out.String())

	body := fs.body()
	assert.Equal(t, "capital of France?", gjson.Get(body, "contents.0.parts.0.text").String())
	assert.Equal(t, "application/json", gjson.Get(body, "generationConfig.responseMimeType").String())
	assert.Equal(t, "object", gjson.Get(body, "generationConfig.responseJsonSchema.type").String())
	assert.Equal(t, int64(3), gjson.Get(body, "generationConfig.topK").Int())
}

func TestChat_Errors(t *testing.T) {
	t.Parallel()

	t.Run("status", func(t *testing.T) {
		t.Parallel()
		fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
		})
		g := newTestLLM(t, fs)

		_, err := g.Chat(context.Background(), []llms.Message{llms.UserMessage("hi")})
		require.Error(t, err)
		var d *llms.ErrorDetail
		require.True(t, errors.As(err, &d))
		assert.Equal(t, 429, d.StatusCode)
		assert.Equal(t, "quota exceeded", d.Message)
		assert.Equal(t, fs.URL+generatePath, d.URL)

		out, err := g.Chat(context.Background(), []llms.Message{llms.UserMessage("hi")}, llms.WithReturnError(true))
		require.NoError(t, err)
		assert.Equal(t, "Too Many Requests - Rate limit exceeded, try again later", out.Err().ErrorType)
	})

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()
		fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"candidates":[]}`)
		})
		g := newTestLLM(t, fs)

		out, err := g.Chat(context.Background(), []llms.Message{llms.UserMessage("hi")}, llms.WithReturnError(true))
		require.NoError(t, err)
		require.False(t, out.OK())
		assert.Equal(t, llms.KindResponse, out.Err().Kind)
		assert.Equal(t, llms.ErrorTypeResponse, out.Err().ErrorType)
	})

	t.Run("invalid role", func(t *testing.T) {
		t.Parallel()
		fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			textResponse(w, "never")
		})
		g := newTestLLM(t, fs)

		_, err := g.Chat(context.Background(), []llms.Message{{Role: "tool", Parts: []llms.ContentPart{llms.TextPart("x")}}},
			llms.WithReturnError(true))
		assert.ErrorIs(t, err, llms.ErrUnexpectedRole)
		assert.Equal(t, int32(0), fs.calls.Load())
	})
}

func TestVision(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		textResponse(w, "a cat")
	})
	g := newTestLLM(t, fs)

	img := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xff, 0xd8}, 0o600))

	out, err := g.Vision(context.Background(), "what is it?", []string{img})
	require.NoError(t, err)
	assert.Equal(t, "a cat", out.String())

	body := fs.body()
	assert.Equal(t, "what is it?", gjson.Get(body, "contents.0.parts.0.text").String())
	assert.Equal(t, "image/jpeg", gjson.Get(body, "contents.0.parts.1.inlineData.mimeType").String())
	assert.Equal(t, "/9g=", gjson.Get(body, "contents.0.parts.1.inlineData.data").String())

	_, err = g.Vision(context.Background(), "what is it?", []string{filepath.Join(t.TempDir(), "missing.jpg")})
	assert.True(t, errors.Is(err, llms.ErrImageNotFound))
	assert.Equal(t, int32(1), fs.calls.Load())
}

func TestChatStream(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, streamPath, r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":""}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"lo"}]},"finishReason":"STOP"}]}`,
		} {
			_, _ = io.WriteString(w, "data: "+chunk+"\n\n")
		}
	})
	g := newTestLLM(t, fs)

	seq := g.ChatStream(context.Background(), []llms.Message{llms.UserMessage("hi")})
	assert.Equal(t, int32(0), fs.calls.Load(), "lazy")

	var chunks []string
	for chunk, err := range seq {
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, []string{"Hel", "lo"}, chunks)

	_, err := llms.Collect(seq)
	assert.ErrorIs(t, err, llms.ErrStreamConsumed)
}

func TestChatStream_Error(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`)
	})
	g := newTestLLM(t, fs)

	_, err := llms.Collect(g.ChatStream(context.Background(), []llms.Message{llms.UserMessage("hi")}))
	require.Error(t, err)
	var d *llms.ErrorDetail
	require.True(t, errors.As(err, &d))
	assert.Equal(t, 401, d.StatusCode)
	assert.Equal(t, fs.URL+streamPath, d.URL)
	assert.Contains(t, d.Error(), "Verify your API key and permissions")
}
