// Package declaration defines the Loader collaborator contract (service
// declarations are loaded from disk, an external concern the engine only
// consumes through this interface) plus a default YAML-directory
// implementation, grounded in the teacher's config loader conventions.
package declaration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doctrack/doctrack/internal/model"
)

// Loader loads service declarations from path. The tracking engine calls
// this exactly once, at Init.
type Loader interface {
	Load(ctx context.Context, path string) (map[string]model.ServiceDeclaration, error)
}

// fileDeclaration mirrors the on-disk YAML shape for one service file:
// "<serviceId>.yaml" containing a documents map.
type fileDeclaration struct {
	Documents map[string]model.DocumentDeclaration `yaml:"documents"`
}

// YAMLDirectoryLoader loads one ServiceDeclaration per "*.yaml"/"*.yml" file
// in a directory, using the file's base name (without extension) as the
// ServiceId.
type YAMLDirectoryLoader struct{}

// Load reads every YAML file directly inside dir.
func (YAMLDirectoryLoader) Load(ctx context.Context, dir string) (map[string]model.ServiceDeclaration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("declaration: reading %s: %w", dir, err)
	}

	declarations := make(map[string]model.ServiceDeclaration)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		serviceID := strings.TrimSuffix(entry.Name(), ext)

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("declaration: reading %s: %w", entry.Name(), err)
		}
		var fd fileDeclaration
		if err := yaml.Unmarshal(raw, &fd); err != nil {
			return nil, fmt.Errorf("declaration: parsing %s: %w", entry.Name(), err)
		}
		declarations[serviceID] = model.ServiceDeclaration{ServiceID: serviceID, Documents: fd.Documents}
	}
	return declarations, nil
}
