// Package guided requests structured JSON output from a model
// and decodes it into Go types.
package guided

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
	"github.com/effective-security/llmfacade/pkg/llmutils"
	"github.com/effective-security/llmfacade/pkg/schema"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parser constrains the model output to the JSON Schema of T.
type Parser[T any] struct {
	schema   *schema.Schema
	params   map[string]any
	name     string
	validate bool
}

// New returns the parser for T, which must be a struct type.
// Tagging the fields with "jsonschema" adds titles, descriptions and enums
// to the schema, and "validate" tags are checked by Parse.
func New[T any]() (*Parser[T], error) {
	sc, err := schema.For[T]()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	params, err := sc.Map()
	if err != nil {
		return nil, err
	}

	var zero T
	return &Parser[T]{
		schema:   sc,
		params:   params,
		name:     fmt.Sprintf("%T parser", zero),
		validate: true,
	}, nil
}

// WithValidation enables or disables the struct validation in Parse.
func (p *Parser[T]) WithValidation(validate bool) *Parser[T] {
	p.validate = validate
	return p
}

// Type returns the name of the parser.
func (p *Parser[T]) Type() string {
	return p.name
}

// Schema returns the schema of T.
func (p *Parser[T]) Schema() *schema.Schema {
	return p.schema
}

// Option returns the call option with the guided JSON schema.
func (p *Parser[T]) Option() llms.CallOption {
	return llms.WithGuidedJSON(p.params)
}

// ResponseFormat returns the call option with OpenAI `response_format`,
// for the endpoints that support structured outputs natively.
func (p *Parser[T]) ResponseFormat(strict bool) llms.CallOption {
	return llms.WithExtra("response_format", schema.NewResponseFormat(p.schema, strict))
}

// FormatInstructions returns the prompt suffix describing the expected JSON.
func (p *Parser[T]) FormatInstructions() string {
	var b bytes.Buffer
	b.WriteString("\nRespond with JSON in the following JSON schema:\n")
	b.WriteString("```json\n")
	b.WriteString(p.schema.String())
	b.WriteString("\n```")
	b.WriteString("\nMake sure to return an instance of the JSON, not the schema itself.\n")
	b.WriteString("Use the exact field names as they are defined in the schema.\n")
	return b.String()
}

// Parse decodes the model output, the text around the JSON is ignored.
// Decoding failures are marked as llms.ErrResponseShape.
func (p *Parser[T]) Parse(text string) (*T, error) {
	data := llmutils.CleanJSON(llmutils.BytesTrimBackticks([]byte(text)))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Mark(errors.New("no JSON found in response"), llms.ErrResponseShape)
	}

	var target T
	if err := ljson.Unmarshal(data, &target); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode"), llms.ErrResponseShape)
	}
	if p.validate {
		if err := validate.Struct(target); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to validate"), llms.ErrResponseShape)
		}
	}
	return &target, nil
}

// Chat calls the model with the schema attached and parses the answer.
// The faults are always returned as errors.
func (p *Parser[T]) Chat(ctx context.Context, model llms.Model, messages []llms.Message, options ...llms.CallOption) (*T, error) {
	out, err := model.Chat(ctx, messages, slices.Concat(options, []llms.CallOption{p.Option(), llms.WithReturnError(false)})...)
	if err != nil {
		return nil, err
	}
	text, ok := out.Text()
	if !ok {
		return nil, out.Err()
	}
	return p.Parse(text)
}
