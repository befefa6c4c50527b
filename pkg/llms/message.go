package llms

import (
	"encoding/base64"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnexpectedRole is returned when a message role is of an unexpected type.
var ErrUnexpectedRole = errors.New("unexpected role")

// Role is the author of a chat message.
type Role string

const (
	// RoleSystem is a message with instructions for the model.
	RoleSystem Role = "system"
	// RoleUser is a message sent by the user.
	RoleUser Role = "user"
	// RoleAssistant is a message sent by the model.
	RoleAssistant Role = "assistant"
)

// ParseRole normalizes role names used by different providers.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "user", "human":
		return RoleUser, nil
	case "assistant", "ai", "model":
		return RoleAssistant, nil
	}
	return "", errors.Wrapf(ErrUnexpectedRole, "role %q", s)
}

// Message is the message sent to a LLM. It has a role and a
// sequence of parts. A plain text message has a single TextContent part.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"content"`
}

// ContentPart is an interface all parts of content have to implement.
type ContentPart interface {
	isPart()
}

// TextContent is content with some text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isPart() {}

// ImageURLContent is content with an URL pointing to an image,
// usually an inline data URL.
type ImageURLContent struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"` // Detail is the detail of the image, e.g. "low", "high".
}

func (iuc ImageURLContent) String() string {
	return iuc.URL
}

func (ImageURLContent) isPart() {}

// DecodeDataURL returns the MIME type and the raw bytes of a data URL image.
func (iuc ImageURLContent) DecodeDataURL() (string, []byte, error) {
	rest, ok := strings.CutPrefix(iuc.URL, "data:")
	if !ok {
		return "", nil, errors.Newf("not a data URL: %.32s", iuc.URL)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URL")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return mime, []byte(data), nil
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to decode data URL")
	}
	return mime, raw, nil
}

// BinaryContent is content holding some binary data with a MIME type.
type BinaryContent struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// String returns the content as a data URL.
func (bc BinaryContent) String() string {
	base64Encoded := base64.StdEncoding.EncodeToString(bc.Data)
	return "data:" + bc.MIMEType + ";base64," + base64Encoded
}

func (BinaryContent) isPart() {}

// TextPart creates TextContent from a given string.
func TextPart(s string) TextContent {
	return TextContent{Text: s}
}

// BinaryPart creates a new BinaryContent from the given MIME type (e.g.
// "image/png" and binary data).
func BinaryPart(mime string, data []byte) BinaryContent {
	return BinaryContent{
		MIMEType: mime,
		Data:     data,
	}
}

// ImageURLPart creates a new ImageURLContent from the given URL.
func ImageURLPart(url string) ImageURLContent {
	return ImageURLContent{
		URL: url,
	}
}

// MessageFromParts is a helper function to create a Message with a role and a
// list of parts.
func MessageFromParts(role Role, parts ...ContentPart) Message {
	return Message{
		Role:  role,
		Parts: parts,
	}
}

// MessageFromTextParts is a helper function to create a Message with a role and a
// list of text parts.
func MessageFromTextParts(role Role, parts ...string) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, TextPart(part))
	}
	return result
}

// SystemMessage returns a system message with a single text part.
func SystemMessage(text string) Message {
	return MessageFromTextParts(RoleSystem, text)
}

// UserMessage returns a user message with a single text part.
func UserMessage(text string) Message {
	return MessageFromTextParts(RoleUser, text)
}

// AssistantMessage returns an assistant message with a single text part.
func AssistantMessage(text string) Message {
	return MessageFromTextParts(RoleAssistant, text)
}

// GetText returns the concatenated text parts of the message.
func (m Message) GetText() string {
	var buf strings.Builder
	for _, p := range m.Parts {
		if tc, ok := p.(TextContent); ok {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(tc.Text)
		}
	}
	return buf.String()
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := Message{Role: m.Role}
	if m.Parts == nil {
		return c
	}
	c.Parts = make([]ContentPart, len(m.Parts))
	for i, p := range m.Parts {
		if bc, ok := p.(BinaryContent); ok {
			bc.Data = slices.Clone(bc.Data)
			p = bc
		}
		c.Parts[i] = p
	}
	return c
}

// CloneMessages returns a deep copy of the messages,
// adapters translate the copy and never the caller's slice.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	res := make([]Message, len(messages))
	for i, m := range messages {
		res[i] = m.Clone()
	}
	return res
}

// ValidateMessages checks roles and parts of the messages.
func ValidateMessages(messages []Message) error {
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return errors.Wrapf(ErrUnexpectedRole, "message %d: role %q", i, m.Role)
		}
		for _, p := range m.Parts {
			if p == nil {
				return errors.Newf("message %d: nil content part", i)
			}
		}
	}
	return nil
}
