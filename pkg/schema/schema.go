package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llmutils"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrUnresolvedRef is returned when the type schema references a definition
// that can not be inlined, for example a recursive type.
var ErrUnresolvedRef = errors.New("unresolved schema reference")

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex
)

// Schema is the JSON Schema of a Go type.
type Schema struct {
	Name      string
	RawSchema *jsonschema.Schema
	// Parameters is the object schema with all references inlined,
	// it is sent to the providers as guided JSON.
	Parameters *jsonschema.Schema
}

// New creates a new schema from the given type
func New(t reflect.Type) (*Schema, error) {
	cacheMu.RLock()
	s, ok := cache[t]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()
	return s, nil
}

// For returns the schema of T
func For[T any]() (*Schema, error) {
	return New(reflect.TypeFor[T]())
}

func (s *Schema) String() string {
	return llmutils.ToJSONIndent(s.Parameters)
}

// Map returns Parameters as a generic JSON object,
// suitable for SDKs that encode documents without JSON tags.
func (s *Schema) Map() (map[string]any, error) {
	js, err := json.Marshal(s.Parameters)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}

func buildSchema(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("schema: struct type is expected, got %s", t.Kind())
	}

	raw := JSONSchema(t)
	params, err := flatten(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "schema: %s", t.Name())
	}

	return &Schema{
		Name:       t.Name(),
		RawSchema:  raw,
		Parameters: params,
	}, nil
}

func flatten(tSchema *jsonschema.Schema) (*jsonschema.Schema, error) {
	refID := defName(tSchema.Ref)

	defs := make(map[string]*jsonschema.Schema)
	root := tSchema
	for name, def := range tSchema.Definitions {
		if name == refID {
			root = def
		} else {
			defs[name] = def
		}
	}

	res := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}
	if res.Properties == nil {
		return res, nil
	}
	if err := resolveRefs(res.Properties, defs); err != nil {
		return nil, err
	}
	return res, nil
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) error {
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		child := pair.Value
		if child.Ref != "" {
			def, ok := defs[defName(child.Ref)]
			if !ok {
				return errors.Mark(errors.Errorf("property %q: %s", pair.Key, child.Ref), ErrUnresolvedRef)
			}
			pair.Value = def
			child = def
		}
		if child.Properties != nil {
			if err := resolveRefs(child.Properties, defs); err != nil {
				return err
			}
		}
		if child.Items != nil && child.Items.Ref != "" {
			def, ok := defs[defName(child.Items.Ref)]
			if !ok {
				return errors.Mark(errors.Errorf("items of %q: %s", pair.Key, child.Items.Ref), ErrUnresolvedRef)
			}
			child.Items = def
		}
		if child.Items != nil && child.Items.Properties != nil {
			if err := resolveRefs(child.Items.Properties, defs); err != nil {
				return err
			}
		}
	}
	return nil
}

func defName(ref string) string {
	return strings.TrimPrefix(ref, "#/$defs/")
}

// JSONSchema returns the inlined JSON Schema of the type
func JSONSchema(t reflect.Type) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	// types with the same name in different packages must not share a definition
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}

	return r.ReflectFromType(t)
}

// FromAny creates a JSON Schema from a generic value,
// for example map[string]any or a raw JSON object.
func FromAny(t any) (*jsonschema.Schema, error) {
	var js []byte
	switch v := t.(type) {
	case []byte:
		js = v
	case json.RawMessage:
		js = v
	case string:
		js = []byte(v)
	default:
		var err error
		js, err = json.Marshal(t)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(js, schema); err != nil {
		return nil, errors.Wrap(err, "invalid JSON schema")
	}
	return schema, nil
}
