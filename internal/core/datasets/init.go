// Package datasets registers all built-in dataset definitions with the core
// registry. Import this package to ensure all datasets are registered.
package datasets

import (
	"fmt"

	"github.com/JonMunkholm/mongoetl/internal/core"
)

// LoadRules registers the datasets defined in a YAML rules file.
// Definitions replace built-in datasets with the same key.
func LoadRules(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	defs, err := core.LoadRulesFile(path)
	if err != nil {
		return 0, fmt.Errorf("load rules: %w", err)
	}
	for _, def := range defs {
		core.Replace(def)
	}
	return len(defs), nil
}
