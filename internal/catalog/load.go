package catalog

import (
	"fmt"
	"os"
)

// Load reads a catalog from path: a directory is loaded as CSV tables
// (pattern selects the files), anything else as a YAML document.
func Load(path, pattern string) (*Memory, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if info.IsDir() {
		return LoadCSVDir(path, pattern)
	}
	return LoadYAML(path)
}
