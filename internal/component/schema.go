package component

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/jsonschema-go/jsonschema"
)

var payloadSchema = mustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{KeyID, KeyParent, KeyLeft, KeyTop, KeyWidth, KeyHeight},
	Properties: map[string]*jsonschema.Schema{
		KeyID:     {Type: "string", MinLength: intPtr(1), MaxLength: intPtr(maxCompIDLength)},
		KeyParent: {Types: []string{"string", "null"}, MaxLength: intPtr(maxCompIDLength)},
		KeyLeft:   int32Schema(),
		KeyTop:    int32Schema(),
		KeyWidth:  int32Schema(),
		KeyHeight: int32Schema(),
	},
})

// mustResolve resolves a schema built in code; failure is a programming error.
func mustResolve(schema *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		panic(fmt.Sprintf("resolve component schema: %v", err))
	}
	return resolved
}

func int32Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:    "integer",
		Minimum: floatPtr(math.MinInt32),
		Maximum: floatPtr(math.MaxInt32),
	}
}

// jsonInstance converts a payload to plain JSON values so numbers are checked
// the same way whether they came off the wire or were built in Go.
func jsonInstance(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return instance, nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
