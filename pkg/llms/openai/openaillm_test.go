package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeServer struct {
	*httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value
}

func newFakeServer(t *testing.T, h func(w http.ResponseWriter, r *http.Request, body []byte)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		fs.lastBody.Store(body)
		h(w, r, body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) body() []byte {
	b, _ := fs.lastBody.Load().([]byte)
	return b
}

func newTestLLM(t *testing.T, fs *fakeServer, opts ...Option) *LLM {
	t.Helper()
	llm, err := New(append([]Option{
		WithToken("sk-test"),
		WithBaseURL(fs.URL + "/v1"),
		WithHTTPClient(fs.Client()),
	}, opts...)...)
	require.NoError(t, err)
	return llm
}

func TestNew(t *testing.T) {
	t.Parallel()

	llm, err := New()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())
	assert.Equal(t, DefaultModel, llm.GetName())
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", llm.URL("/chat/completions"))

	llm, err = New(WithModel("gpt-4o"), WithBaseURL("http://localhost:8000/v1/"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", llm.GetName())
	assert.Equal(t, "http://localhost:8000/v1/completions", llm.URL("/completions"))
}

func TestComplete(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "org", r.Header.Get("OpenAI-Organization"))
		_, _ = io.WriteString(w, `{"choices":[{"text":"Paris"}]}`)
	})
	llm := newTestLLM(t, fs, WithOrganization("org"), WithModel("instruct"))

	out, err := llm.Complete(context.Background(), "Capital of France?")
	require.NoError(t, err)
	text, ok := out.Text()
	require.True(t, ok)
	assert.Equal(t, "Paris", text)

	body := fs.body()
	assert.Equal(t, "instruct", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "Capital of France?", gjson.GetBytes(body, "prompt").String())
	assert.EqualValues(t, 256, gjson.GetBytes(body, "max_tokens").Int())
	assert.EqualValues(t, 0, gjson.GetBytes(body, "temperature").Float())
	assert.EqualValues(t, 1, gjson.GetBytes(body, "n").Int())
	assert.False(t, gjson.GetBytes(body, "top_p").Exists())
	assert.False(t, gjson.GetBytes(body, "stream").Exists())
}

func TestChat(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	})
	llm := newTestLLM(t, fs)

	msgs := []llms.Message{
		llms.SystemMessage("Answer in JSON"),
		llms.UserMessage("ok?"),
	}
	schema := map[string]any{"type": "object", "properties": map[string]any{"ok": map[string]any{"type": "boolean"}}}
	out, err := llm.Chat(context.Background(), msgs,
		llms.WithModel("gpt-4o"),
		llms.WithTemperature(0.3),
		llms.WithGuidedJSON(schema),
		llms.WithExtra("seed", 7),
	)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out.String())

	body := fs.body()
	assert.Equal(t, "gpt-4o", gjson.GetBytes(body, "model").String())
	assert.Equal(t, 0.3, gjson.GetBytes(body, "temperature").Float())
	assert.Equal(t, "object", gjson.GetBytes(body, "guided_json.type").String())
	assert.EqualValues(t, 7, gjson.GetBytes(body, "seed").Int())
	assert.Equal(t, "Answer in JSON", gjson.GetBytes(body, "messages.0.content").String())
	assert.Equal(t, "ok?", gjson.GetBytes(body, "messages.1.content").String())
}

func TestChat_ReturnError(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	})
	llm := newTestLLM(t, fs)
	msgs := []llms.Message{llms.UserMessage("hi")}

	out, err := llm.Chat(context.Background(), msgs, llms.WithReturnError(true))
	require.NoError(t, err)
	require.False(t, out.OK())
	d := out.Err()
	assert.Equal(t, 401, d.StatusCode)
	assert.Equal(t, fs.URL+"/v1/chat/completions", d.URL)
	assert.Equal(t, "POST", d.Method)
	assert.Equal(t, "Verify your API key and permissions", d.Suggestion)

	_, err = llm.Chat(context.Background(), msgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed with status code 401")
	assert.EqualValues(t, 2, fs.calls.Load())
}

func TestChat_InvalidRole(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(http.ResponseWriter, *http.Request, []byte) {})
	llm := newTestLLM(t, fs)
	_, err := llm.Chat(context.Background(), []llms.Message{{Role: "tool"}}, llms.WithReturnError(true))
	assert.ErrorIs(t, err, llms.ErrUnexpectedRole)
	assert.Zero(t, fs.calls.Load())
}

func TestChat_Timeout(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	llm := newTestLLM(t, fs)

	out, err := llm.Chat(context.Background(), []llms.Message{llms.UserMessage("hi")},
		llms.WithTimeout(50*time.Millisecond),
		llms.WithReturnError(true),
	)
	require.NoError(t, err)
	require.False(t, out.OK())
	assert.False(t, out.Err().HasStatus())
	assert.Equal(t, llms.ErrorTypeNetwork, out.Err().ErrorType)
}

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestVision(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"a cat"}}]}`)
	})
	llm := newTestLLM(t, fs)
	img := writeImage(t, "cat.png", []byte("Hello"))

	out, err := llm.Vision(context.Background(), "What is it?", []string{img})
	require.NoError(t, err)
	assert.Equal(t, "a cat", out.String())

	body := fs.body()
	assert.Equal(t, "user", gjson.GetBytes(body, "messages.0.role").String())
	assert.Equal(t, "text", gjson.GetBytes(body, "messages.0.content.0.type").String())
	assert.Equal(t, "What is it?", gjson.GetBytes(body, "messages.0.content.0.text").String())
	assert.Equal(t, "image_url", gjson.GetBytes(body, "messages.0.content.1.type").String())
	assert.Equal(t, "data:image/png;base64,SGVsbG8=", gjson.GetBytes(body, "messages.0.content.1.image_url.url").String())
}

func TestVision_MissingImage(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(http.ResponseWriter, *http.Request, []byte) {})
	llm := newTestLLM(t, fs)
	img := writeImage(t, "cat.png", []byte("Hello"))
	missing := filepath.Join(t.TempDir(), "dog.png")

	out, err := llm.Vision(context.Background(), "What is it?", []string{img, missing}, llms.WithReturnError(true))
	require.NoError(t, err)
	require.False(t, out.OK())
	assert.Equal(t, llms.KindValidation, out.Err().Kind)
	assert.Equal(t, "Image file not found", out.Err().ErrorType)
	assert.Contains(t, out.Err().Message, missing)

	_, err = llm.Vision(context.Background(), "What is it?", []string{missing})
	assert.ErrorIs(t, err, llms.ErrImageNotFound)
	assert.Zero(t, fs.calls.Load())
}

func sse(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", e)
	}
}

func TestChatStream(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		sse(w,
			`{"choices":[{"delta":{"content":"The "}}]}`,
			`{"choices":[{"delta":{"content":"answer "}}]}`,
			`{"choices":[{"delta":{"content":"is 42"}}]}`,
			`[DONE]`,
		)
	})
	llm := newTestLLM(t, fs)

	seq := llm.ChatStream(context.Background(), []llms.Message{llms.UserMessage("?")}, llms.WithExtra("stream", false))
	var got []string
	for chunk, err := range seq {
		require.NoError(t, err)
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"The ", "answer ", "is 42"}, got)
	assert.True(t, gjson.GetBytes(fs.body(), "stream").Bool())

	_, err := llms.Collect(seq)
	assert.ErrorIs(t, err, llms.ErrStreamConsumed)
	assert.EqualValues(t, 1, fs.calls.Load())
}

func TestChatStream_Errors(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	llm := newTestLLM(t, fs)

	// faults are always yielded as errors
	_, err := llms.Collect(llm.ChatStream(context.Background(), []llms.Message{llms.UserMessage("?")}, llms.WithReturnError(true)))
	var d *llms.ErrorDetail
	require.True(t, errors.As(err, &d))
	assert.Equal(t, 503, d.StatusCode)

	_, err = llms.Collect(llm.ChatStream(context.Background(), []llms.Message{llms.UserMessage("?")},
		llms.WithImagePaths(filepath.Join(t.TempDir(), "none.png"))))
	assert.ErrorIs(t, err, llms.ErrImageNotFound)
	assert.EqualValues(t, 1, fs.calls.Load())
}

func TestCompleteStream(t *testing.T) {
	t.Parallel()

	fs := newFakeServer(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		sse(w,
			`{"choices":[{"text":"1, "}]}`,
			`{"choices":[{"text":"2, "}]}`,
			`{"choices":[{"text":"3"}]}`,
			`[DONE]`,
		)
	})
	llm := newTestLLM(t, fs)

	text, err := llms.Collect(llm.CompleteStream(context.Background(), "count to 3"))
	require.NoError(t, err)
	assert.Equal(t, "1, 2, 3", text)
	assert.Equal(t, "count to 3", gjson.GetBytes(fs.body(), "prompt").String())
}
