package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

const maxNameLength = 50

var (
	projectBodySchema = mustResolve(nameSchema("name"))
	pageBodySchema    = mustResolve(nameSchema("title"))
)

func nameSchema(field string) *jsonschema.Schema {
	minLength, maxLength := 1, maxNameLength
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{field},
		Properties: map[string]*jsonschema.Schema{
			field: {Type: "string", MinLength: &minLength, MaxLength: &maxLength},
		},
	}
}

func mustResolve(schema *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		panic(fmt.Sprintf("resolve request schema: %v", err))
	}
	return resolved
}

// validateName checks a decoded request body against schema and returns the
// trimmed value of field. Failures are 406 with the field named in details.
func validateName(schema *jsonschema.Resolved, body map[string]any, field string) (string, error) {
	if body == nil {
		body = map[string]any{}
	}
	if err := schema.Validate(body); err != nil {
		return "", domainError(http.StatusNotAcceptable, "VALIDATION_ERROR", fmt.Sprintf("%s is invalid", field), map[string]any{
			"field":  field,
			"reason": err.Error(),
		})
	}
	value := strings.TrimSpace(body[field].(string))
	if value == "" {
		return "", domainError(http.StatusNotAcceptable, "VALIDATION_ERROR", fmt.Sprintf("%s is invalid", field), map[string]any{
			"field":  field,
			"reason": "may not be blank",
		})
	}
	return value, nil
}
