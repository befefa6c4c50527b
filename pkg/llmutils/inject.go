package llmutils

import (
	"github.com/effective-security/llmfacade/pkg/llms"
)

// Shape is the provider native form of an image part.
type Shape int

const (
	// ShapeDataURL is an image_url part with base64 data URL,
	// used by OpenAI-compatible and Azure.
	ShapeDataURL Shape = iota
	// ShapeRawBytes is a binary part with raw bytes,
	// used by Bedrock and Gemini.
	ShapeRawBytes
)

func (s Shape) String() string {
	if s == ShapeRawBytes {
		return "raw_bytes"
	}
	return "data_url"
}

// ImageParts validates the paths and returns one part per path, in order.
func ImageParts(paths []string, shape Shape) ([]llms.ContentPart, error) {
	if _, err := ValidateImagePaths(paths); err != nil {
		return nil, err
	}

	parts := make([]llms.ContentPart, 0, len(paths))
	for _, p := range paths {
		mime := ImageMIMEType(p)
		switch shape {
		case ShapeRawBytes:
			data, err := ReadImage(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, llms.BinaryPart(mime, data))
		default:
			encoded, err := EncodeImage(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, llms.ImageURLPart("data:"+mime+";base64,"+encoded))
		}
	}
	return parts, nil
}

// InjectImages returns a copy of messages with images appended to the last
// user message. If there is no user message, a new one is appended.
// The input is not modified.
func InjectImages(messages []llms.Message, paths []string, shape Shape) ([]llms.Message, error) {
	res := llms.CloneMessages(messages)
	if len(paths) == 0 {
		return res, nil
	}

	parts, err := ImageParts(paths, shape)
	if err != nil {
		return nil, err
	}

	idx := FindLastUserIndex(res)
	if idx < 0 {
		res = append(res, llms.MessageFromParts(llms.RoleUser))
		idx = len(res) - 1
	}
	res[idx].Parts = append(res[idx].Parts, parts...)
	return res, nil
}

// VisionMessages returns a single user message with the prompt
// followed by the images.
func VisionMessages(prompt string, paths []string, shape Shape) ([]llms.Message, error) {
	return InjectImages([]llms.Message{llms.UserMessage(prompt)}, paths, shape)
}
