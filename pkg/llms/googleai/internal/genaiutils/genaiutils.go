// Package genaiutils translates messages and call options to genai requests.
package genaiutils

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/tidwall/sjson"
	"google.golang.org/genai"
)

// ResponseMIMETypeJSON is set when guided JSON is requested.
const ResponseMIMETypeJSON = "application/json"

// ConvertParts converts message parts to genai parts,
// images are sent as inline data.
func ConvertParts(parts []llms.ContentPart) ([]*genai.Part, error) {
	converted := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case llms.TextContent:
			converted = append(converted, genai.NewPartFromText(p.Text))
		case llms.BinaryContent:
			converted = append(converted, genai.NewPartFromBytes(p.Data, p.MIMEType))
		case llms.ImageURLContent:
			mime, data, err := p.DecodeDataURL()
			if err != nil {
				return nil, errors.Mark(err, llms.ErrImageEncoding)
			}
			converted = append(converted, genai.NewPartFromBytes(data, mime))
		default:
			return nil, errors.Errorf("unsupported content part: %T", part)
		}
	}
	return converted, nil
}

// ConvertRole maps the message role to genai role.
func ConvertRole(role llms.Role) (genai.Role, error) {
	switch role {
	case llms.RoleUser:
		return genai.RoleUser, nil
	case llms.RoleAssistant:
		return genai.RoleModel, nil
	default:
		return "", errors.Wrapf(llms.ErrUnexpectedRole, "role %q", role)
	}
}

// ConvertMessages returns the system instruction and the history.
// Multiple system messages are merged into one instruction.
func ConvertMessages(messages []llms.Message) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	history := make([]*genai.Content, 0, len(messages))

	for i, m := range messages {
		parts, err := ConvertParts(m.Parts)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "message %d", i)
		}

		if m.Role == llms.RoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, parts...)
			continue
		}

		role, err := ConvertRole(m.Role)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "message %d", i)
		}
		history = append(history, genai.NewContentFromParts(parts, role))
	}
	return system, history, nil
}

// Config returns the generation config for the options.
// Extra fields use genai JSON names, like topK or seed, and override the defaults.
func Config(opts *llms.CallOptions) (*genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		StopSequences:   opts.StopWords,
	}
	if opts.N > 1 {
		cfg.CandidateCount = int32(opts.N)
	}
	if opts.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*opts.TopP))
	}
	if opts.FrequencyPenalty != nil {
		cfg.FrequencyPenalty = genai.Ptr(float32(*opts.FrequencyPenalty))
	}
	if opts.PresencePenalty != nil {
		cfg.PresencePenalty = genai.Ptr(float32(*opts.PresencePenalty))
	}
	if opts.GuidedJSON != nil {
		cfg.ResponseMIMEType = ResponseMIMETypeJSON
		cfg.ResponseJsonSchema = opts.GuidedJSON
	}

	if len(opts.Extra) == 0 {
		return cfg, nil
	}

	js, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		js, err = sjson.SetBytes(js, k, opts.Extra[k])
		if err != nil {
			return nil, errors.Wrapf(err, "extra %q", k)
		}
	}

	merged := new(genai.GenerateContentConfig)
	if err = json.Unmarshal(js, merged); err != nil {
		return nil, errors.Wrap(err, "invalid extra fields")
	}
	return merged, nil
}

// Text returns the text of the first candidate.
// The shape error is marked llms.ErrResponseShape.
func Text(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.Mark(errors.New("missing candidates[0] in response"), llms.ErrResponseShape)
	}
	c := resp.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return "", errors.Mark(errors.New("missing candidates[0].content.parts in response"), llms.ErrResponseShape)
	}
	return DeltaText(resp), nil
}

// DeltaText returns the text parts of the first candidate,
// empty when the chunk has no text.
func DeltaText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
