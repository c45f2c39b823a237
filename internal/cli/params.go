package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// buildParams assembles the parameter object for an invocation. The file, if
// any, supplies the base object; each key=value pair is then set on top. Keys
// are sjson paths, so "a.b=1" sets a nested member. Values that parse as JSON
// are used as JSON, anything else as a string.
func buildParams(file string, pairs []string) ([]byte, error) {
	params := []byte("{}")
	if file != "" {
		var err error
		params, err = readParamsFile(file)
		if err != nil {
			return nil, err
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		var err error
		if gjson.Valid(value) {
			params, err = sjson.SetRawBytes(params, key, []byte(value))
		} else {
			params, err = sjson.SetBytes(params, key, value)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid parameter %q: %w", pair, err)
		}
	}
	return params, nil
}

// readParamsFile reads a JSON or YAML parameter object. {{ .ENV.VAR }}
// placeholders are expanded first.
func readParamsFile(file string) ([]byte, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data, err = expandEnvTemplate(data, filepath.Join(filepath.Dir(file), ".env"))
	if err != nil {
		return nil, err
	}

	if gjson.ValidBytes(data) {
		if !gjson.ParseBytes(data).IsObject() {
			return nil, fmt.Errorf("%s: parameters must be an object", file)
		}
		return data, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return out, nil
}
