// Package manifest loads the optional YAML deployment manifest that
// declares custom firewall targets beyond the built-in GPU and buildbox
// defaults.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voxlane/asrctl/internal/firewall"
)

// Manifest is the top-level manifest document.
type Manifest struct {
	Version int          `yaml:"version"`
	Targets []TargetSpec `yaml:"targets"`
}

// TargetSpec declares one custom target: its security group and port set.
type TargetSpec struct {
	Name          string     `yaml:"name"`
	SecurityGroup string     `yaml:"security_group"`
	Ports         []PortSpec `yaml:"ports"`
	PublicPorts   []int      `yaml:"public_ports"`
}

// PortSpec is one port entry in a target declaration.
type PortSpec struct {
	Port        int    `yaml:"port"`
	Description string `yaml:"description"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if m.Version != 1 {
		return nil, errors.New("unsupported manifest version")
	}
	for _, t := range m.Targets {
		if t.Name == "" {
			return nil, errors.New("manifest target with empty name")
		}
		if _, err := buildTarget(t); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// Target returns the firewall target declared under name.
func (m *Manifest) Target(name string) (*firewall.Target, error) {
	for _, t := range m.Targets {
		if t.Name == name {
			return buildTarget(t)
		}
	}
	return nil, fmt.Errorf("manifest has no target %q", name)
}

func buildTarget(spec TargetSpec) (*firewall.Target, error) {
	target := &firewall.Target{
		ID:          spec.SecurityGroup,
		DisplayName: spec.Name,
		Kind:        firewall.KindCustom,
		PublicPorts: spec.PublicPorts,
	}
	for _, p := range spec.Ports {
		target.Ports = append(target.Ports, firewall.Port{Number: p.Port, Description: p.Description})
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("manifest target %q: %w", spec.Name, err)
	}
	return target, nil
}
