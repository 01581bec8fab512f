package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentx-labs/compkg/internal/errs"
	"go.yaml.in/yaml/v3"
)

// Parse validates raw manifest bytes (JSON or YAML) against the component
// schema and decodes them into a Component. Shorthand file, dependency, and
// MCP server entries are normalized during decoding.
func Parse(data []byte) (*Component, error) {
	jsonData, err := toJSON(data)
	if err != nil {
		return nil, err
	}

	result, err := Validate(jsonData)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, result.Err()
	}

	var c Component
	if err := json.Unmarshal(jsonData, &c); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "decoding manifest")
	}
	if !IsValidKind(c.Type) {
		return nil, errs.Validationf("unknown component type %q", c.Type)
	}
	return &c, nil
}

// ParseFile reads a manifest file from disk and parses it.
func ParseFile(path string) (*Component, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return c, nil
}

// ParsePackument decodes a registry packument. Individual versions are
// validated lazily by ParseVersion.
func ParsePackument(data []byte) (*Packument, error) {
	var p Packument
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "decoding packument")
	}
	if len(p.Versions) == 0 {
		return nil, errs.Validationf("packument %q lists no versions", p.Name)
	}
	return &p, nil
}

// ParseVersion parses the manifest published under version.
func (p *Packument) ParseVersion(version string) (*Component, error) {
	raw, ok := p.Versions[version]
	if !ok {
		return nil, errs.NotFoundf("version %s of %s not found", version, p.Name)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s@%s: %w", p.Name, version, err)
	}
	return c, nil
}

// toJSON converts YAML (a superset of JSON) into canonical JSON bytes.
func toJSON(data []byte) ([]byte, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "parsing manifest")
	}
	out, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "converting manifest to JSON")
	}
	return out, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
