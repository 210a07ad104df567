package n8n

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type ArtifactKind string

const (
	ArtifactWorkflows   ArtifactKind = "workflows"
	ArtifactCredentials ArtifactKind = "credentials"
)

var (
	//go:embed schema/workflows.json
	workflowsSchema []byte

	//go:embed schema/credentials.json
	credentialsSchema []byte

	schemasOnce sync.Once
	schemas     map[ArtifactKind]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	sources := map[ArtifactKind][]byte{
		ArtifactWorkflows:   workflowsSchema,
		ArtifactCredentials: credentialsSchema,
	}

	compiled := make(map[ArtifactKind]*jsonschema.Schema, len(sources))
	for kind, source := range sources {
		url := string(kind) + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(source)); err != nil {
			schemasErr = fmt.Errorf("failed to add %s schema: %w", kind, err)
			return
		}

		schema, err := compiler.Compile(url)
		if err != nil {
			schemasErr = fmt.Errorf("failed to compile %s schema: %w", kind, err)
			return
		}

		compiled[kind] = schema
	}

	schemas = compiled
}

// ValidateArtifact checks a rendered artifact against the import format
// schema for its kind.
func ValidateArtifact(kind ArtifactKind, data []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}

	schema, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}

	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("%s artifact is not valid JSON: %w", kind, err)
	}

	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%s artifact does not match import format: %w", kind, err)
	}

	return nil
}
