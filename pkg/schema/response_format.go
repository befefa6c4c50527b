package schema

import (
	"github.com/invopop/jsonschema"
)

// ResponseFormat is the OpenAI native structured output format,
// sent as `response_format` to the providers that support it.
type ResponseFormat struct {
	Type       string                    `json:"type"`
	JSONSchema *ResponseFormatJSONSchema `json:"json_schema,omitempty"`
}

// ResponseFormatJSONSchema is the named schema of ResponseFormat
type ResponseFormatJSONSchema struct {
	Name   string    `json:"name"`
	Strict bool      `json:"strict"`
	Schema *Property `json:"schema"`
}

// Property is a JSON Schema node in the OpenAI subset
type Property struct {
	Type                 string               `json:"type"`
	Title                string               `json:"title,omitempty"`
	Description          string               `json:"description,omitempty"`
	Enum                 []any                `json:"enum,omitempty"`
	Default              any                  `json:"default,omitempty"`
	Examples             []any                `json:"examples,omitempty"`
	Items                *Property            `json:"items,omitempty"`
	Properties           map[string]*Property `json:"properties,omitempty"`
	AdditionalProperties *bool                `json:"additionalProperties,omitempty"`
	Required             []string             `json:"required,omitempty"`
}

// NewResponseFormat returns the response format for the schema.
// In strict mode every property is required and additional properties are not allowed.
func NewResponseFormat(s *Schema, strict bool) *ResponseFormat {
	return &ResponseFormat{
		Type: "json_schema",
		JSONSchema: &ResponseFormatJSONSchema{
			Name:   s.Name,
			Strict: strict,
			Schema: toProperty(s.Parameters, strict),
		},
	}
}

func toProperty(in *jsonschema.Schema, strict bool) *Property {
	if in == nil {
		return nil
	}

	res := &Property{
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Enum:        in.Enum,
		Default:     in.Default,
		Examples:    in.Examples,
		Required:    in.Required,
		Items:       toProperty(in.Items, strict),
	}

	if in.Type == "object" {
		allowed := in.AdditionalProperties != nil && !strict
		res.AdditionalProperties = &allowed
	}

	if in.Properties != nil {
		res.Properties = make(map[string]*Property, in.Properties.Len())
		var required []string
		for pair := in.Properties.Oldest(); pair != nil; pair = pair.Next() {
			res.Properties[pair.Key] = toProperty(pair.Value, strict)
			required = append(required, pair.Key)
		}
		if strict {
			res.Required = required
		}
	}

	return res
}
