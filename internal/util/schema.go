package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`           // Field that failed validation
	Value   any    `json:"value,omitempty"` // Value that was provided
	Message string `json:"message"`         // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	ExpandedStruct:            true,
	AllowAdditionalProperties: true,
}

// CreateSchema reflects a JSON schema object from a Go struct. Fields without
// omitempty are required; descriptions come from `jsonschema:"description=..."`
// or `jsonschema_description` tags.
func CreateSchema(structType any) map[string]any {
	s := reflector.Reflect(structType)

	raw, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	delete(schema, "$schema")
	delete(schema, "$id")

	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}

	return schema
}

// ValidateJSON decodes raw tool arguments and validates them against schema.
// Empty input is treated as an empty object. The decoded object is returned
// on success.
func ValidateJSON(raw []byte, schema map[string]any) (map[string]any, error) {
	args := map[string]any{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("arguments are not valid JSON: %v", err)}
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, &ValidationError{Value: decoded, Message: fmt.Sprintf("arguments must be a JSON object, got %T", decoded)}
		}
		args = obj
	}

	if err := ValidateParameters(args, schema); err != nil {
		return nil, err
	}

	return args, nil
}

// ValidateParameters validates parameters against a JSON schema. A nil or
// empty schema accepts anything. Only the first violation is reported.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(params))
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid schema: %v", err)}
	}

	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]

	field := first.Field()
	if first.Type() == "required" {
		if prop, ok := first.Details()["property"].(string); ok {
			field = prop
		}
	}
	if field == "(root)" {
		field = ""
	}

	return &ValidationError{
		Field:   field,
		Value:   first.Value(),
		Message: first.Description(),
	}
}
