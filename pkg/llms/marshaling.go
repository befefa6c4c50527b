package llms

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSON models accepted for messages. Content may be a plain string,
// a single block or a list of blocks, in OpenAI style
// ({"type":"image_url",...}) or Bedrock style ({"image":{...}}).

type messageJSON struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
	// Text is a shortcut for a single text part
	Text string `json:"text,omitempty"`
}

// ContentPartJSON represents the JSON structure for content parts
type ContentPartJSON struct {
	Type     string        `json:"type,omitempty"`
	Text     *string       `json:"text,omitempty"`
	ImageURL *ImageURLJSON `json:"image_url,omitempty"`
	Binary   *BinaryJSON   `json:"binary,omitempty"`
	Image    *ImageJSON    `json:"image,omitempty"`
}

// ImageURLJSON represents the JSON structure for image URL content
type ImageURLJSON struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// BinaryJSON represents the JSON structure for binary content
type BinaryJSON struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// ImageJSON is the Bedrock image block
type ImageJSON struct {
	Format string `json:"format"`
	Source struct {
		Bytes []byte `json:"bytes"`
	} `json:"source"`
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	// Special case: single text part can be simplified
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok {
			return json.Marshal(struct {
				Role    Role   `json:"role"`
				Content string `json:"content"`
			}{Role: m.Role, Content: tp.Text})
		}
	}
	parts := m.Parts
	if parts == nil {
		parts = []ContentPart{}
	}
	return json.Marshal(struct {
		Role    Role          `json:"role"`
		Content []ContentPart `json:"content"`
	}{Role: m.Role, Content: parts})
}

// UnmarshalJSON implements json.Unmarshaler for Message,
// every accepted content shape is normalized to a part list.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return errors.WithStack(err)
	}

	role, err := ParseRole(mj.Role)
	if err != nil {
		return err
	}
	m.Role = role
	m.Parts = nil

	content := bytes.TrimSpace(mj.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
		if mj.Text != "" {
			m.Parts = []ContentPart{TextContent{Text: mj.Text}}
		}
	case content[0] == '"':
		var s string
		if err := json.Unmarshal(content, &s); err != nil {
			return errors.WithStack(err)
		}
		m.Parts = []ContentPart{TextContent{Text: s}}
	case content[0] == '[':
		var raw []ContentPartJSON
		if err := json.Unmarshal(content, &raw); err != nil {
			return errors.Wrap(err, "invalid content list")
		}
		for _, pj := range raw {
			part, err := unmarshalContentPart(pj)
			if err != nil {
				return err
			}
			m.Parts = append(m.Parts, part)
		}
	case content[0] == '{':
		var pj ContentPartJSON
		if err := json.Unmarshal(content, &pj); err != nil {
			return errors.Wrap(err, "invalid content block")
		}
		part, err := unmarshalContentPart(pj)
		if err != nil {
			return err
		}
		m.Parts = []ContentPart{part}
	default:
		// numbers and booleans are kept as text
		m.Parts = []ContentPart{TextContent{Text: string(content)}}
	}
	return nil
}

// unmarshalContentPart converts ContentPartJSON to ContentPart
func unmarshalContentPart(pj ContentPartJSON) (ContentPart, error) {
	switch pj.Type {
	case "text":
		if pj.Text == nil {
			return nil, errors.New("text field is required for text type")
		}
		return TextContent{Text: *pj.Text}, nil
	case "image_url":
		if pj.ImageURL == nil || pj.ImageURL.URL == "" {
			return nil, errors.New("image_url field is required for image_url type")
		}
		return ImageURLContent{
			URL:    pj.ImageURL.URL,
			Detail: pj.ImageURL.Detail,
		}, nil
	case "binary":
		if pj.Binary == nil {
			return nil, errors.New("binary field is required for binary type")
		}
		decoded, err := base64.StdEncoding.DecodeString(pj.Binary.Data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode binary data")
		}
		return BinaryContent{
			MIMEType: pj.Binary.MIMEType,
			Data:     decoded,
		}, nil
	case "":
		// Bedrock style blocks are keyed by content kind
		switch {
		case pj.Text != nil:
			return TextContent{Text: *pj.Text}, nil
		case pj.Image != nil:
			format := pj.Image.Format
			if format == "" {
				format = "jpeg"
			}
			return BinaryContent{
				MIMEType: "image/" + format,
				Data:     pj.Image.Source.Bytes,
			}, nil
		}
		return nil, errors.New("empty content block")
	default:
		return nil, errors.Newf("unknown content type: '%s'", pj.Type)
	}
}

// MarshalJSON implements json.Marshaler for TextContent
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "text", Text: tc.Text})
}

// MarshalJSON implements json.Marshaler for ImageURLContent
func (iuc ImageURLContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string       `json:"type"`
		ImageURL ImageURLJSON `json:"image_url"`
	}{
		Type:     "image_url",
		ImageURL: ImageURLJSON{URL: iuc.URL, Detail: iuc.Detail},
	})
}

// MarshalJSON implements json.Marshaler for BinaryContent
func (bc BinaryContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string     `json:"type"`
		Binary BinaryJSON `json:"binary"`
	}{
		Type: "binary",
		Binary: BinaryJSON{
			MIMEType: bc.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(bc.Data),
		},
	})
}
