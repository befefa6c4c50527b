package bedrockclient

import (
	"context"
	"iter"
	"maps"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/xlog"
)

const (
	opConverse       = "converse"
	opConverseStream = "converse-stream"
)

var imageFormats = map[string]types.ImageFormat{
	"image/jpeg": types.ImageFormatJpeg,
	"image/jpg":  types.ImageFormatJpeg,
	"image/png":  types.ImageFormatPng,
	"image/gif":  types.ImageFormatGif,
	"image/webp": types.ImageFormatWebp,
}

// ImageFormat returns the Bedrock image format for the MIME type.
func ImageFormat(mime string) (types.ImageFormat, error) {
	if f, ok := imageFormats[mime]; ok {
		return f, nil
	}
	return "", errors.Mark(errors.Newf("unsupported image type: %s", mime), llms.ErrImageEncoding)
}

// Input is the request to Converse and ConverseStream.
type Input struct {
	ModelID  string
	Messages []types.Message
	System   []types.SystemContentBlock
	Config   *types.InferenceConfiguration
	// Fields are sent as additionalModelRequestFields.
	Fields map[string]any
}

// BuildInput converts messages and options to the Converse request.
// System messages are sent as system blocks.
func BuildInput(modelID string, messages []llms.Message, opts *llms.CallOptions) (*Input, error) {
	in := &Input{
		ModelID: modelID,
		Config: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(opts.MaxTokens)),
			Temperature: aws.Float32(float32(opts.Temperature)),
		},
	}
	if opts.TopP != nil {
		in.Config.TopP = aws.Float32(float32(*opts.TopP))
	}
	if len(opts.StopWords) > 0 {
		in.Config.StopSequences = opts.StopWords
	}

	if opts.GuidedJSON != nil || len(opts.Extra) > 0 {
		in.Fields = make(map[string]any, len(opts.Extra)+1)
		if opts.GuidedJSON != nil {
			in.Fields["guided_json"] = opts.GuidedJSON
		}
		maps.Copy(in.Fields, opts.Extra)
	}

	for i, m := range messages {
		if m.Role == llms.RoleSystem {
			if text := m.GetText(); text != "" {
				in.System = append(in.System, &types.SystemContentBlockMemberText{Value: text})
			}
			continue
		}

		role := types.ConversationRoleUser
		if m.Role == llms.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		blocks, err := contentBlocks(m.Parts)
		if err != nil {
			return nil, errors.WithMessagef(err, "message %d", i)
		}
		in.Messages = append(in.Messages, types.Message{
			Role:    role,
			Content: blocks,
		})
	}
	return in, nil
}

func contentBlocks(parts []llms.ContentPart) ([]types.ContentBlock, error) {
	blocks := make([]types.ContentBlock, 0, len(parts))
	for _, p := range parts {
		switch pp := p.(type) {
		case llms.TextContent:
			blocks = append(blocks, &types.ContentBlockMemberText{Value: pp.Text})
		case llms.BinaryContent:
			b, err := imageBlock(pp.MIMEType, pp.Data)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		case llms.ImageURLContent:
			mime, data, err := pp.DecodeDataURL()
			if err != nil {
				return nil, errors.Mark(err, llms.ErrImageEncoding)
			}
			b, err := imageBlock(mime, data)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		default:
			return nil, errors.Errorf("unsupported content part: %T", p)
		}
	}
	return blocks, nil
}

func imageBlock(mime string, data []byte) (types.ContentBlock, error) {
	format, err := ImageFormat(mime)
	if err != nil {
		return nil, err
	}
	return &types.ContentBlockMemberImage{
		Value: types.ImageBlock{
			Format: format,
			Source: &types.ImageSourceMemberBytes{Value: data},
		},
	}, nil
}

func (in *Input) document() document.Interface {
	if len(in.Fields) == 0 {
		return nil
	}
	return document.NewLazyDocument(in.Fields)
}

// ConverseInput returns the SDK request.
func (in *Input) ConverseInput() *bedrockruntime.ConverseInput {
	return &bedrockruntime.ConverseInput{
		ModelId:                      aws.String(in.ModelID),
		Messages:                     in.Messages,
		System:                       in.System,
		InferenceConfig:              in.Config,
		AdditionalModelRequestFields: in.document(),
	}
}

// ConverseStreamInput returns the SDK streaming request.
func (in *Input) ConverseStreamInput() *bedrockruntime.ConverseStreamInput {
	return &bedrockruntime.ConverseStreamInput{
		ModelId:                      aws.String(in.ModelID),
		Messages:                     in.Messages,
		System:                       in.System,
		InferenceConfig:              in.Config,
		AdditionalModelRequestFields: in.document(),
	}
}

// Converse returns output.message.content[0].text
func (c *Client) Converse(ctx context.Context, in *Input) (string, error) {
	u := c.URL(in.ModelID, opConverse)
	logger.ContextKV(ctx, xlog.DEBUG, "url", u, "provider", getProvider(in.ModelID))

	out, err := c.rt.Converse(ctx, in.ConverseInput())
	if err != nil {
		return "", transportError(u, err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", llms.NewResponseError(u, http.MethodPost, http.StatusOK, "missing output.message in response")
	}
	if len(msg.Value.Content) == 0 {
		return "", llms.NewResponseError(u, http.MethodPost, http.StatusOK, "missing output.message.content[0] in response")
	}
	text, ok := msg.Value.Content[0].(*types.ContentBlockMemberText)
	if !ok {
		return "", llms.NewResponseError(u, http.MethodPost, http.StatusOK, "missing output.message.content[0].text in response")
	}
	return text.Value, nil
}

// ConverseStream returns the sequence of contentBlockDelta.delta.text
func (c *Client) ConverseStream(ctx context.Context, in *Input) iter.Seq2[string, error] {
	return llms.SingleUse(func(yield func(string, error) bool) {
		u := c.URL(in.ModelID, opConverseStream)
		logger.ContextKV(ctx, xlog.DEBUG, "url", u, "provider", getProvider(in.ModelID))

		stream, err := c.rt.ConverseStream(ctx, in.ConverseStreamInput())
		if err != nil {
			yield("", transportError(u, err))
			return
		}
		defer func() {
			_ = stream.Close()
		}()

		for e := range stream.Events() {
			v, ok := e.(*types.ConverseStreamOutputMemberContentBlockDelta)
			if !ok {
				continue
			}
			delta, ok := v.Value.Delta.(*types.ContentBlockDeltaMemberText)
			if !ok {
				continue
			}
			if !yield(delta.Value, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", transportError(u, err))
		}
	})
}
