// Package compose parses docker-compose files far enough to enumerate the
// services of a deployment and their declared dependencies.
package compose

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File represents a docker-compose.yaml file
type File struct {
	Version  string              `yaml:"version"`
	Services map[string]*Service `yaml:"services"`
	Volumes  map[string]any      `yaml:"volumes"`
}

// Service represents a service entry in a docker-compose.yaml
type Service struct {
	Name          string        // service key from the compose file
	Image         string        `yaml:"image"`
	ContainerName string        `yaml:"container_name"`
	DependsOn     StringOrSlice `yaml:"depends_on"`
	Restart       string        `yaml:"restart"`
	HealthCheck   *HealthCheck  `yaml:"healthcheck"`
}

// HealthCheck represents the healthcheck section of a compose service
type HealthCheck struct {
	Test     StringOrSlice `yaml:"test"`
	Interval string        `yaml:"interval"`
	Timeout  string        `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
}

// StringOrSlice handles compose fields that may be a string or a list.
// depends_on additionally appears as a map with per-dependency conditions.
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler
func (s *StringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var str string
		if err := value.Decode(&str); err != nil {
			return err
		}
		*s = []string{str}
	case yaml.SequenceNode:
		var slice []string
		if err := value.Decode(&slice); err != nil {
			return err
		}
		*s = slice
	case yaml.MappingNode:
		var m map[string]any
		if err := value.Decode(&m); err != nil {
			return err
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		*s = keys
	default:
		return fmt.Errorf("unexpected YAML node kind %d", value.Kind)
	}
	return nil
}

// Parse reads and parses a docker-compose file
func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}

	for name, svc := range f.Services {
		if svc == nil {
			svc = &Service{}
			f.Services[name] = svc
		}
		svc.Name = name
	}

	return &f, nil
}

// ServiceNames returns the service keys in deterministic order
func (f *File) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasService reports whether the compose file declares the named service
func (f *File) HasService(name string) bool {
	_, ok := f.Services[name]
	return ok
}
