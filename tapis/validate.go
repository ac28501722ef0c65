package tapis

import (
	"fmt"
	"strings"

	"github.com/pb33f/libopenapi-validator/schema_validation"
	"github.com/pb33f/libopenapi/datamodel/high/base"
)

// validateBody checks an encoded request body against its declared schema.
func validateBody(operationID string, schema *base.Schema, payload []byte) error {
	valid, errs := schema_validation.NewSchemaValidator().ValidateSchemaString(schema, string(payload))
	if valid {
		return nil
	}

	reasons := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Reason != "" {
			reasons = append(reasons, e.Reason)
			continue
		}
		reasons = append(reasons, e.Message)
	}
	return &Error{
		Kind:    ErrInvalidInput,
		Message: fmt.Sprintf("operation %s: request body does not match schema: %s", operationID, strings.Join(reasons, "; ")),
	}
}
