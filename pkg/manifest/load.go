// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a manifest from a YAML or JSON file. Files without a known
// extension are probed as JSON first, then YAML.
func Load(path string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return parseAuto(data)
	}
}

func parseAuto(data []byte) (*Manifest, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if m, err := ParseJSON(data); err == nil {
			return m, nil
		}
	}
	if m, err := ParseYAML(data); err == nil {
		return m, nil
	}
	if m, err := ParseJSON(data); err == nil {
		return m, nil
	}
	return nil, fmt.Errorf("unsupported manifest format")
}
