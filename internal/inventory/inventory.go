// Package inventory loads a static fleet file as an alternative target
// source for when the directory is unavailable or hosts are unjoined.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"adfleet/internal/target"
)

// Entry is one host in the fleet file
type Entry struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Fleet is a parsed fleet file: named groups of hosts
type Fleet struct {
	Groups map[string][]Entry `yaml:"groups"`
}

// Load parses the fleet file at path
func Load(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet file '%s': %w", path, err)
	}

	var fleet Fleet
	if err := yaml.Unmarshal(data, &fleet); err != nil {
		return nil, fmt.Errorf("failed to parse fleet file '%s': %w", path, err)
	}

	for group, entries := range fleet.Groups {
		for i, e := range entries {
			if e.Name == "" {
				return nil, fmt.Errorf("fleet file '%s': group '%s' entry %d has no name", path, group, i+1)
			}
		}
	}

	return &fleet, nil
}

// GroupNames returns the group names sorted
func (f *Fleet) GroupNames() []string {
	names := make([]string, 0, len(f.Groups))
	for name := range f.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Targets returns every host in the fleet, deduplicated and sorted by name
func (f *Fleet) Targets() []target.Target {
	var targets []target.Target
	for _, name := range f.GroupNames() {
		targets = append(targets, entriesToTargets(f.Groups[name])...)
	}
	return target.SortByName(target.Dedupe(targets))
}

// TargetsByGroup returns the hosts of one group, deduplicated and sorted by
// name. An unknown group yields an error, not an empty list, because the
// operator named it explicitly.
func (f *Fleet) TargetsByGroup(group string) ([]target.Target, error) {
	entries, ok := f.Groups[group]
	if !ok {
		return nil, fmt.Errorf("group '%s' not found in fleet file", group)
	}
	return target.SortByName(target.Dedupe(entriesToTargets(entries))), nil
}

func entriesToTargets(entries []Entry) []target.Target {
	targets := make([]target.Target, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, target.Target{Name: e.Name, Address: e.Address})
	}
	return targets
}
