package registry

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaBase is the $id prefix shared by the embedded schemas
const schemaBase = "https://toolsmith.dev/schemas/"

type responseSchemas struct {
	latest   *jsonschema.Schema
	releases *jsonschema.Schema
}

// loadSchemas compiles the embedded schemas once per process
var loadSchemas = sync.OnceValues(compileSchemas)

func compileSchemas() (*responseSchemas, error) {
	c := jsonschema.NewCompiler()

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", entry.Name(), err)
		}
		if err := c.AddResource(schemaBase+entry.Name(), doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", entry.Name(), err)
		}
	}

	latest, err := c.Compile(schemaBase + "latest.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile latest schema: %w", err)
	}
	releases, err := c.Compile(schemaBase + "releases.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile releases schema: %w", err)
	}

	return &responseSchemas{latest: latest, releases: releases}, nil
}

// validate checks a response body against a schema. Both malformed JSON
// and shape mismatches are reported as ErrParse.
func validate(schema *jsonschema.Schema, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", binary.ErrParse, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: unexpected response shape: %w", binary.ErrParse, err)
	}
	return nil
}
