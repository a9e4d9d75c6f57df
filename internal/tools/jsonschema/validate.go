// Package jsonschema validates tool call arguments against a tool's own
// parameter schema before dispatch, supplementing the Agent Loop's generic
// "parse as structured data" step with a concrete, corpus-grounded
// enrichment: arguments that parse as JSON but don't match the tool's
// declared schema are treated the same as a parse failure.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks that params (raw JSON tool-call arguments) conforms to
// schema (a tool's Schema() descriptor). A nil or empty schema is treated as
// "accept anything".
func Validate(schema map[string]any, params []byte) error {
	if len(schema) == 0 {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool-params.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("tool-params.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var instance any
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("arguments do not match schema: %w", err)
	}
	return nil
}
