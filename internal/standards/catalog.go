// Package standards holds the ordered catalog of BCCNM practice standards a
// feedback session walks through. The catalog is immutable after load.
package standards

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed standards.yaml
var embeddedCatalog []byte

// Standard is one practice-evaluation category.
type Standard struct {
	ID               int      `yaml:"id" json:"id"`
	Name             string   `yaml:"name" json:"name"`
	FullName         string   `yaml:"full_name" json:"full_name"`
	Description      string   `yaml:"description" json:"description"`
	KeyAreas         []string `yaml:"key_areas" json:"key_areas"`
	ExampleQuestions []string `yaml:"example_questions" json:"example_questions"`
}

type Catalog struct {
	standards []Standard
}

type catalogFile struct {
	Standards []Standard `yaml:"standards"`
}

// Load reads the catalog from STANDARDS_FILE when set, falling back to the
// embedded default. An empty or malformed catalog is a configuration error.
func Load() (*Catalog, error) {
	raw := embeddedCatalog
	if path := strings.TrimSpace(os.Getenv("STANDARDS_FILE")); path != "" {
		fileRaw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading standards file %s: %w", path, err)
		}
		raw = fileRaw
	}
	return Parse(raw)
}

// Parse builds and validates a catalog from YAML.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing standards catalog: %w", err)
	}
	if len(file.Standards) == 0 {
		return nil, fmt.Errorf("standards catalog is empty")
	}
	for i, s := range file.Standards {
		if s.ID != i+1 {
			return nil, fmt.Errorf("standards catalog out of order: position %d has id %d", i+1, s.ID)
		}
		if strings.TrimSpace(s.FullName) == "" {
			return nil, fmt.Errorf("standard %d missing full_name", s.ID)
		}
		if len(s.KeyAreas) == 0 {
			return nil, fmt.Errorf("standard %d has no key areas", s.ID)
		}
	}
	return &Catalog{standards: file.Standards}, nil
}

// Len is the number of standards in walk order.
func (c *Catalog) Len() int {
	return len(c.standards)
}

// ByIndex returns the standard at the 0-based cursor position.
func (c *Catalog) ByIndex(i int) (Standard, bool) {
	if i < 0 || i >= len(c.standards) {
		return Standard{}, false
	}
	return c.standards[i], true
}

// ByID returns the standard with the given ordinal (1-based).
func (c *Catalog) ByID(id int) (Standard, bool) {
	return c.ByIndex(id - 1)
}

// All returns the standards in walk order. Callers must not mutate.
func (c *Catalog) All() []Standard {
	return c.standards
}
