package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*
var schemaFiles embed.FS

func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchema
}

// validate checks raw JSON config bytes against the embedded config schema.
func validate(raw []byte) error {
	s, err := jsonschema.Compile("embedFS://schema/config.schema.json")
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: decode for validation: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("config: schema validation failed: %w", err)
	}
	return nil
}
