package toolschema

import "fmt"

// ValidateToolInput validates a candidate tool-call's input against the
// named schema's required fields: unknown tool names produce one
// unknown_tool error; each missing required field produces one required
// error; extra unknown fields are not errors.
func ValidateToolInput(toolName string, input map[string]any, schemas []A2uiToolSchema) ValidationResult {
	schema, ok := findSchema(schemas, toolName)
	if !ok {
		return ValidationResult{
			IsValid: false,
			Errors: []ValidationError{{
				Field: "",
				Message: fmt.Sprintf("unknown tool %q", toolName),
				Code: "unknown_tool",
			}},
		}
	}

	var errs []ValidationError
	for _, field := range schema.RequiredFields {
		if _, present := input[field]; !present {
			errs = append(errs, ValidationError{
				Field: field,
				Message: fmt.Sprintf("missing required field %q", field),
				Code: "required",
			})
		}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func findSchema(schemas []A2uiToolSchema, name string) (A2uiToolSchema, bool) {
	for _, s := range schemas {
		if s.Name == name {
			return s, true
		}
	}
	return A2uiToolSchema{}, false
}
