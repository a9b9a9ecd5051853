package action

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/KevinKickass/OpenPlateReader/internal/instrument"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

const defaultSchema = "no_args.json"

// ArgumentValidator checks action arguments against the embedded JSON schemas.
type ArgumentValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewArgumentValidator compiles one schema per action. Actions without a
// dedicated schema file get no_args.json.
func NewArgumentValidator(actions []string) (*ArgumentValidator, error) {
	compiler := jsonschema.NewCompiler()

	entries, err := fs.ReadDir(schemaFS, "schema")
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}

	available := make(map[string]bool)
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", entry.Name(), err)
		}
		available[entry.Name()] = true
	}

	v := &ArgumentValidator{schemas: make(map[string]*jsonschema.Schema)}
	for _, name := range actions {
		file := name + ".json"
		if !available[file] {
			file = defaultSchema
		}

		schema, err := compiler.Compile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", name, err)
		}
		v.schemas[name] = schema
	}

	return v, nil
}

// Normalize round-trips args through JSON so numbers are float64 and the
// value tree has the shape the schema validator expects.
func Normalize(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, &instrument.ValidationError{Field: "args", Reason: fmt.Sprintf("arguments not encodable: %v", err)}
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &instrument.ValidationError{Field: "args", Reason: fmt.Sprintf("arguments not decodable: %v", err)}
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Validate returns a *instrument.ValidationError when args do not match.
func (v *ArgumentValidator) Validate(action string, args map[string]any) error {
	schema, ok := v.schemas[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	if err := schema.Validate(args); err != nil {
		reason := err.Error()
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			for len(ve.Causes) > 0 {
				ve = ve.Causes[0]
			}
			reason = ve.Message
			if ve.InstanceLocation != "" {
				reason = ve.InstanceLocation + ": " + ve.Message
			}
		}
		return &instrument.ValidationError{
			Field:  "args",
			Reason: fmt.Sprintf("invalid arguments for %s: %s", action, reason),
		}
	}
	return nil
}
