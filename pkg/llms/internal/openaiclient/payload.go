package openaiclient

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/tidwall/sjson"
)

// ImageURL is the image_url part of a message.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart is a part of a multi-part message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ChatMessage is a chat completion message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ChatMessages converts messages to the chat completion form,
// binary parts are sent as data URL.
func ChatMessages(messages []llms.Message) []ChatMessage {
	res := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		msg := ChatMessage{Role: string(m.Role)}
		if len(m.Parts) == 1 {
			if tc, ok := m.Parts[0].(llms.TextContent); ok {
				msg.Content = tc.Text
				res = append(res, msg)
				continue
			}
		}

		parts := make([]ContentPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch pp := p.(type) {
			case llms.TextContent:
				parts = append(parts, ContentPart{Type: "text", Text: pp.Text})
			case llms.ImageURLContent:
				parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: pp.URL, Detail: pp.Detail}})
			case llms.BinaryContent:
				parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: pp.String()}})
			}
		}
		msg.Content = parts
		res = append(res, msg)
	}
	return res
}

// CompletionPayload returns the body for /completions.
func CompletionPayload(model, prompt string, opts *llms.CallOptions, stream bool) ([]byte, error) {
	return buildPayload(model, "prompt", prompt, opts, stream)
}

// ChatPayload returns the body for /chat/completions.
func ChatPayload(model string, messages []llms.Message, opts *llms.CallOptions, stream bool) ([]byte, error) {
	return buildPayload(model, "messages", ChatMessages(messages), opts, stream)
}

// buildPayload sets the generation defaults, then the options,
// then the extra fields which override anything before,
// and stream=true last.
func buildPayload(model, inputKey string, input any, opts *llms.CallOptions, stream bool) ([]byte, error) {
	if opts == nil {
		opts = llms.NewCallOptions(model)
	}

	type field struct {
		key string
		val any
	}
	fields := []field{
		{inputKey, input},
		{"max_tokens", opts.MaxTokens},
		{"temperature", opts.Temperature},
		{"n", opts.N},
	}
	if model != "" {
		fields = append([]field{{"model", model}}, fields...)
	}
	if opts.TopP != nil {
		fields = append(fields, field{"top_p", *opts.TopP})
	}
	if opts.FrequencyPenalty != nil {
		fields = append(fields, field{"frequency_penalty", *opts.FrequencyPenalty})
	}
	if opts.PresencePenalty != nil {
		fields = append(fields, field{"presence_penalty", *opts.PresencePenalty})
	}
	if len(opts.StopWords) > 0 {
		fields = append(fields, field{"stop", opts.StopWords})
	}
	if opts.GuidedJSON != nil {
		fields = append(fields, field{"guided_json", opts.GuidedJSON})
	}

	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fields = append(fields, field{k, opts.Extra[k]})
	}

	body := []byte("{}")
	var err error
	for _, f := range fields {
		body, err = sjson.SetBytes(body, f.key, f.val)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to set %q", f.key)
		}
	}
	// the stream flag follows the call, not the extras
	if stream {
		body, err = sjson.SetBytes(body, "stream", true)
	} else {
		body, err = sjson.DeleteBytes(body, "stream")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to set stream")
	}
	return body, nil
}
