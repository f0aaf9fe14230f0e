package target

import (
	"fmt"
	"strings"

	"adfleet/internal/directory"
	"adfleet/internal/logging"
)

// SelectorKind distinguishes the ways an operator can pick targets
type SelectorKind int

const (
	// HostSelector matches exactly one computer by name
	HostSelector SelectorKind = iota

	// OUSelector enumerates the computers of one organizational unit
	OUSelector

	// PatternSelector matches computers by a wildcard name expression
	PatternSelector
)

func (k SelectorKind) String() string {
	switch k {
	case HostSelector:
		return "host"
	case OUSelector:
		return "ou"
	case PatternSelector:
		return "pattern"
	default:
		return "unknown"
	}
}

// Selector is one operator-supplied target selection
type Selector struct {
	Kind  SelectorKind
	Value string // hostname, OU distinguished name, or wildcard pattern
}

// Searcher is the directory surface the resolver needs
type Searcher interface {
	ComputersMatching(expr string) ([]directory.Computer, error)
	ComputersInOU(ouDN string) ([]directory.Computer, error)
}

// Resolver turns selectors into concrete target lists
type Resolver struct {
	dir    Searcher
	logger *logging.Logger
}

// NewResolver creates a resolver backed by the given directory searcher
func NewResolver(dir Searcher, logger *logging.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

// Resolve turns a selector into a deduplicated list of targets sorted by
// name. A well-formed selector matching nothing yields an empty list, not an
// error; an error means the directory lookup itself failed.
func (r *Resolver) Resolve(sel Selector) ([]Target, error) {
	var (
		computers []directory.Computer
		err       error
	)

	switch sel.Kind {
	case HostSelector:
		computers, err = r.lookupWithSuffixRetry(sel.Value)
	case OUSelector:
		computers, err = r.dir.ComputersInOU(sel.Value)
	case PatternSelector:
		computers, err = r.lookupWithSuffixRetry(RewritePattern(sel.Value))
	default:
		return nil, fmt.Errorf("invalid selector kind %d", sel.Kind)
	}
	if err != nil {
		return nil, err
	}

	targets := make([]Target, 0, len(computers))
	for _, c := range computers {
		targets = append(targets, Target{
			Name:    c.Name,
			Address: c.DNSHostName,
			DN:      c.DN,
		})
	}

	targets = SortByName(Dedupe(targets))

	if r.logger != nil {
		r.logger.LogResolve(sel.Value, sel.Kind.String(), len(targets))
	}
	return targets, nil
}

// lookupWithSuffixRetry searches for expr and, on an empty match, retries
// once with the machine-account '$' suffix that operators usually omit.
func (r *Resolver) lookupWithSuffixRetry(expr string) ([]directory.Computer, error) {
	computers, err := r.dir.ComputersMatching(expr)
	if err != nil {
		return nil, err
	}
	if len(computers) > 0 || strings.HasSuffix(expr, "$") {
		return computers, nil
	}
	return r.dir.ComputersMatching(expr + "$")
}

// RewritePattern normalizes a wildcard name pattern before it reaches the
// directory. A '**' token in the trailing '-'-separated segment collapses to
// a single prefix wildcard ("DB-OP1-0**" -> "DB-OP1-0*"); a single '*'
// passes through unchanged.
func RewritePattern(pattern string) string {
	idx := strings.LastIndex(pattern, "-")
	if idx < 0 {
		return pattern
	}

	trailing := pattern[idx+1:]
	if !strings.Contains(trailing, "**") {
		return pattern
	}

	// Only the '**' token collapses; a lone '*' in the segment stays.
	collapsed := strings.ReplaceAll(trailing, "**", "")
	return pattern[:idx+1] + collapsed + "*"
}
