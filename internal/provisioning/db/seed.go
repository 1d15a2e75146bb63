package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type moduleSeed struct {
	Modules []struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Active *bool  `yaml:"active"`
	} `yaml:"modules"`
}

// ModuleID derives a stable module key from its name so seeds without
// explicit ids produce the same rows on every start.
func ModuleID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("module:"+strings.ToLower(strings.TrimSpace(name))))
}

// LoadModuleSeed reads the reference module list from a YAML file.
func LoadModuleSeed(path string) ([]models.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModuleSeed(data)
}

func ParseModuleSeed(data []byte) ([]models.Module, error) {
	var seed moduleSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse module seed: %w", err)
	}

	modules := make([]models.Module, 0, len(seed.Modules))
	seen := make(map[string]bool, len(seed.Modules))
	for i, s := range seed.Modules {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("module seed entry %d: name is required", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("module seed entry %d: duplicate name %q", i, name)
		}
		seen[key] = true

		id := ModuleID(name)
		if s.ID != "" {
			parsed, err := uuid.Parse(s.ID)
			if err != nil {
				return nil, fmt.Errorf("module seed entry %d: %w", i, err)
			}
			id = parsed
		}

		active := true
		if s.Active != nil {
			active = *s.Active
		}
		modules = append(modules, models.Module{ID: id, Name: name, Active: active})
	}
	return modules, nil
}
