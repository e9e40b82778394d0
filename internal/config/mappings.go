package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/bounty-warden/internal/core"
)

var (
	ErrMappingsNotFound = errors.New("mappings file not found")
	ErrMappingsParsing  = errors.New("mappings parsing failed")
)

// mappingsFile is the structure of the MAPPINGS_FILE YAML seed.
type mappingsFile struct {
	Mappings []core.AccountMapping `yaml:"mappings"`
}

// LoadMappings reads operator-configured handle to payment account mappings from path.
func LoadMappings(path string) ([]core.AccountMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMappingsNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f mappingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMappingsParsing, err)
	}
	for i, m := range f.Mappings {
		if m.Handle == "" || m.AccountID == "" {
			return nil, fmt.Errorf("%w: entry %d needs github_username and stripe_customer_id", ErrMappingsParsing, i)
		}
	}
	return f.Mappings, nil
}
