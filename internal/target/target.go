// Package target provides the target model and selector resolution for adfleet.
package target

import "sort"

// Target is one addressable machine in a dispatch round. Name is the
// canonical identifier used for reporting; Address is the resolved network
// endpoint, empty when the directory record carries no reachable address.
// Targets are immutable once resolved.
type Target struct {
	Name    string
	Address string
	DN      string
}

// HasAddress reports whether the target can be connected to at all.
func (t Target) HasAddress() bool {
	return t.Address != ""
}

// Dedupe removes duplicate targets by name, keeping the first occurrence and
// preserving insertion order.
func Dedupe(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	return out
}

// SortByName sorts targets by name in place and returns the slice.
// Deterministic ordering is part of the resolver contract.
func SortByName(targets []Target) []Target {
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})
	return targets
}

// Names returns the target names in order.
func Names(targets []Target) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return names
}
