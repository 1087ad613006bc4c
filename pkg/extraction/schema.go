package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func nullable(t string) map[string]any {
	return map[string]any{"type": []string{t, "null"}}
}

func nonNegative(t string) map[string]any {
	return map[string]any{"type": []string{t, "null"}, "minimum": 0}
}

// ProductSchema describes one extracted line item.
func ProductSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":      map[string]any{"type": "string", "minLength": 1},
			"name_en":   nullable("string"),
			"quantity":  map[string]any{"type": "number", "minimum": 0},
			"weight_kg": nonNegative("number"),
			"volume_l":  nonNegative("number"),
			"unit":      map[string]any{"type": "string"},
			"price":     nonNegative("number"),
		},
		"required": []string{"name"},
	}
}

func storeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     nullable("string"),
			"chain":    nullable("string"),
			"country":  nullable("string"),
			"language": nullable("string"),
			"currency": nullable("string"),
		},
	}
}

// ReceiptSchema is sent to the model as the structured-output constraint and
// used locally to validate what comes back. items overrides the product
// schema; pass nil for the full ProductSchema.
func ReceiptSchema(items map[string]any) map[string]any {
	if items == nil {
		items = ProductSchema()
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"store":      storeSchema(),
			"products":   map[string]any{"type": "array", "items": items},
			"confidence": map[string]any{"type": []string{"number", "null"}, "minimum": 0, "maximum": 1},

			"store_name":  nullable("string"),
			"store_chain": nullable("string"),
			"country":     nullable("string"),
			"language":    nullable("string"),
			"currency":    nullable("string"),
		},
	}
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// rawSchema lets a prebuilt schema document satisfy json.Marshaler.
type rawSchema []byte

func (r rawSchema) MarshalJSON() ([]byte, error) {
	return r, nil
}
