package toolschema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// ValidateAgainstInputSchema validates payloadJSON against the full
// JSON-Schema inputSchema declared for toolName (not just the required-field
// summary covered by ValidateToolInput), via the standard
// NewCompiler -> AddResource -> Compile -> Validate call sequence. A
// validation failure is returned as a single ValidationError with code
// "schema"; schema.InputSchema == nil is treated as "no schema" and
// always passes.
func ValidateAgainstInputSchema(toolName string, payloadJSON []byte, schemas []A2uiToolSchema) (ValidationResult, error) {
	schema, ok := findSchema(schemas, toolName)
	if !ok {
		return ValidationResult{
			IsValid: false,
			Errors:  []ValidationError{{Message: fmt.Sprintf("unknown tool %q", toolName), Code: "unknown_tool"}},
		}, nil
	}
	if len(schema.InputSchema) == 0 {
		return ValidationResult{IsValid: true}, nil
	}

	schemaBytes, err := json.Marshal(schema.InputSchema)
	if err != nil {
		return ValidationResult{}, xerrors.Wrap(xerrors.KindToolConversion, err, "marshal input schema")
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		return ValidationResult{}, xerrors.Wrap(xerrors.KindToolConversion, err, "decode input schema")
	}
	var payloadDoc any
	if err := json.Unmarshal(payloadJSON, &payloadDoc); err != nil {
		return ValidationResult{}, xerrors.Wrap(xerrors.KindValidation, err, "decode candidate tool-call payload")
	}

	c := jsonschema.NewCompiler()
	resourceName := "a2ui://" + toolName + "/input-schema.json"
	if err := c.AddResource(resourceName, schemaDoc); err != nil {
		return ValidationResult{}, xerrors.Wrap(xerrors.KindToolConversion, err, "add schema resource")
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return ValidationResult{}, xerrors.Wrap(xerrors.KindToolConversion, err, "compile input schema")
	}

	if err := compiled.Validate(payloadDoc); err != nil {
		return ValidationResult{
			IsValid: false,
			Errors:  []ValidationError{{Message: err.Error(), Code: "schema"}},
		}, nil
	}
	return ValidationResult{IsValid: true}, nil
}
