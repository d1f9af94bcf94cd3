package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// numericFields may come back as JSON numbers; their decimal text is kept
var numericFields = map[string]bool{
	"aadhaarNo": true,
	"pincode":   true,
	"mfgYear":   true,
	"idvValue":  true,
	"premium":   true,
}

// Schema returns the JSON Schema a recognition response for the document
// type must satisfy: an object holding at least one of the type's fields and
// nothing else. Values are strings or null; numeric fields also accept numbers.
func Schema(docType domain.DocumentType) map[string]any {
	props := make(map[string]any)
	for _, name := range domain.FieldNames(docType) {
		types := []string{"string", "null"}
		if numericFields[name] {
			types = []string{"string", "number", "null"}
		}
		props[name] = map[string]any{"type": types}
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
		"minProperties":        1,
	}
}

func compileSchema(docType domain.DocumentType) (*jsonschema.Schema, error) {
	b, err := json.Marshal(Schema(docType))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := string(docType) + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// compileSchemas builds a validator for every recognized document type
func compileSchemas() (map[domain.DocumentType]*jsonschema.Schema, error) {
	out := make(map[domain.DocumentType]*jsonschema.Schema)
	for _, dt := range domain.AllDocumentTypes() {
		s, err := compileSchema(dt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dt, err)
		}
		out[dt] = s
	}
	return out, nil
}
