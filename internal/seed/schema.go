// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package seed

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the fixture schema.
const SchemaID = "https://rostercraft.dev/schemas/seed.schema.json"

var compiledSchema = sync.OnceValues(compileSchema)

// GenerateSchema generates the JSON Schema of a fixture file.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Fixture{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "RosterCraft Seed Fixture"
	schema.Description = "Schema for tournament seed fixtures"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema checks YAML data against the fixture schema.
func ValidateSchema(data []byte) error {
	errb := oops.Code(CodeInvalidFixture)
	if len(data) == 0 {
		return errb.Errorf("fixture is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errb.Wrapf(err, "invalid YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return oops.Wrapf(err, "compile schema")
	}
	if err := sch.Validate(jsonTypes(doc)); err != nil {
		return errb.Errorf("schema validation failed: %s", FormatSchemaError(err))
	}
	return nil
}

func compileSchema() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Wrapf(err, "parse schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("seed.schema.json", doc); err != nil {
		return nil, oops.Wrapf(err, "add schema resource")
	}
	return c.Compile("seed.schema.json")
}

// jsonTypes converts decoded YAML into JSON value types. Scalars YAML
// decodes to other Go types, such as timestamps, go through a JSON round trip.
func jsonTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = jsonTypes(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = jsonTypes(v)
		}
		return out
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}

// FormatSchemaError flattens a validation error to one line.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimPrefix(err.Error(), "schema validation failed: ")
	return strings.Join(strings.Fields(msg), " ")
}
