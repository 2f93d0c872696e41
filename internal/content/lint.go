package content

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed unit.schema.json
var unitSchemaJSON string

var unitSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(unitSchemaJSON))
})

// Lint checks a unit document against the authoring schema and returns one
// warning per violation. Warnings never block a save: normalization still
// applies its defaults. The error is non-nil only when doc is not JSON.
func Lint(doc []byte) ([]string, error) {
	schema, err := unitSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling unit schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("linting unit document: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}
	warnings := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		warnings = append(warnings, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return warnings, nil
}
