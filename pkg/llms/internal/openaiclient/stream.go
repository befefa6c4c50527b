package openaiclient

import (
	"bytes"
	"context"
	"io"
	"iter"
	"net/http"

	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/tidwall/gjson"
)

var (
	doneMarker = []byte("[DONE]")
	newline    = []byte("\n")
)

// countingBody counts the bytes read from the response body.
type countingBody struct {
	io.ReadCloser
	n int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}

// ChunkFunc returns the text delta of a stream chunk,
// false if the chunk carries no text.
type ChunkFunc func(chunk gjson.Result) (string, bool)

// CompletionChunk returns choices[0].text
func CompletionChunk(chunk gjson.Result) (string, bool) {
	res := chunk.Get(PathCompletionText)
	return res.String(), res.Exists()
}

// ChatChunk returns choices[0].delta.content,
// or choices[0].message.content when delta is absent.
func ChatChunk(chunk gjson.Result) (string, bool) {
	if delta := chunk.Get("choices.0.delta"); delta.Exists() {
		res := delta.Get("content")
		return res.String(), res.Exists() && res.Type != gjson.Null
	}
	res := chunk.Get(PathMessageContent)
	return res.String(), res.Exists() && res.Type != gjson.Null
}

// Stream posts the payload and returns the sequence of text deltas
// decoded from the server-sent events. The request is sent on the first pull,
// the body is closed when the sequence ends or the caller stops.
func (c *Client) Stream(ctx context.Context, suffix string, payload []byte, chunkFn ChunkFunc) iter.Seq2[string, error] {
	return llms.SingleUse(func(yield func(string, error) bool) {
		u := c.router(suffix)
		r, err := c.send(ctx, u, payload, true)
		if err != nil {
			yield("", err)
			return
		}

		body := &countingBody{ReadCloser: r.Body}
		r.Body = body
		decoder := ssestream.NewDecoder(r)
		defer func() { _ = decoder.Close() }()

		// handle returns false when the sequence must end.
		var fragments int
		handle := func(data []byte) bool {
			data = bytes.TrimSpace(data)
			if len(data) == 0 {
				return true
			}
			if bytes.Equal(data, doneMarker) {
				return false
			}
			if !gjson.ValidBytes(data) {
				logger.ContextKV(ctx, xlog.WARNING,
					"reason", "invalid_chunk",
					"url", u,
					"chunk", string(data))
				return true
			}

			chunk := gjson.ParseBytes(data)
			if e := chunk.Get("error"); e.Exists() {
				msg := e.Get("message").String()
				if msg == "" {
					msg = e.String()
				}
				yield("", llms.NewTransportError(u, http.MethodPost, r.StatusCode, msg, nil))
				return false
			}
			if len(chunk.Get("choices").Array()) == 0 {
				return true
			}
			text, ok := chunkFn(chunk)
			if !ok {
				return true
			}
			fragments++
			return yield(text, nil)
		}

		var events int
		for decoder.Next() {
			events++
			// an event may carry several data lines when the server omits blank line separators
			for line := range bytes.SplitSeq(decoder.Event().Data, newline) {
				if !handle(line) {
					return
				}
			}
		}

		if err := decoder.Err(); err != nil {
			yield("", llms.NewTransportError(u, http.MethodPost, 0, err.Error(), err))
			return
		}
		if fragments == 0 && body.n > 0 {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "no_fragments",
				"url", u,
				"events", events,
				"bytes", body.n)
			if events == 0 {
				yield("", llms.NewResponseError(u, http.MethodPost, r.StatusCode, "stream ended without server-sent events"))
			}
		}
	})
}

// StreamCompletion streams text completion deltas.
func (c *Client) StreamCompletion(ctx context.Context, payload []byte) iter.Seq2[string, error] {
	return c.Stream(ctx, SuffixCompletions, payload, CompletionChunk)
}

// StreamChat streams chat completion deltas.
func (c *Client) StreamChat(ctx context.Context, payload []byte) iter.Seq2[string, error] {
	return c.Stream(ctx, SuffixChatCompletions, payload, ChatChunk)
}
