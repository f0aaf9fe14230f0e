package target

import (
	"errors"
	"testing"

	"adfleet/internal/directory"
)

// fakeSearcher scripts directory lookups keyed by the exact expression or
// OU distinguished name the resolver sends.
type fakeSearcher struct {
	byExpr  map[string][]directory.Computer
	byOU    map[string][]directory.Computer
	err     error
	queries []string
}

func (f *fakeSearcher) ComputersMatching(expr string) ([]directory.Computer, error) {
	f.queries = append(f.queries, expr)
	if f.err != nil {
		return nil, f.err
	}
	return f.byExpr[expr], nil
}

func (f *fakeSearcher) ComputersInOU(ouDN string) ([]directory.Computer, error) {
	f.queries = append(f.queries, ouDN)
	if f.err != nil {
		return nil, f.err
	}
	return f.byOU[ouDN], nil
}

func TestRewritePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"double star collapses", "DB-OP1-0**", "DB-OP1-0*"},
		{"single star passes through", "DB-OP1-00*", "DB-OP1-00*"},
		{"bare segment star passes through", "DB-OP1-*", "DB-OP1-*"},
		{"double star mid segment", "DB-OP1-0**1", "DB-OP1-01*"},
		{"single star in segment survives", "DB-OP1-0*0**", "DB-OP1-0*0*"},
		{"no dash untouched", "HOST**", "HOST**"},
		{"no wildcard untouched", "DB-OP1-001", "DB-OP1-001"},
		{"double star earlier segment untouched", "DB-**-001", "DB-**-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewritePattern(tt.pattern); got != tt.want {
				t.Errorf("RewritePattern(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestResolve_HostSuffixRetry(t *testing.T) {
	dir := &fakeSearcher{
		byExpr: map[string][]directory.Computer{
			"HOST1$": {{Name: "HOST1", DNSHostName: "host1.corp.local"}},
		},
	}
	r := NewResolver(dir, nil)

	targets, err := r.Resolve(Selector{Kind: HostSelector, Value: "HOST1"})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if len(targets) != 1 || targets[0].Name != "HOST1" {
		t.Fatalf("expected HOST1, got %v", targets)
	}
	if len(dir.queries) != 2 || dir.queries[1] != "HOST1$" {
		t.Fatalf("expected retry with machine-account suffix, queries: %v", dir.queries)
	}
}

func TestResolve_SuffixedHostNotRetried(t *testing.T) {
	dir := &fakeSearcher{byExpr: map[string][]directory.Computer{}}
	r := NewResolver(dir, nil)

	targets, err := r.Resolve(Selector{Kind: HostSelector, Value: "HOST1$"})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected empty match, got %v", targets)
	}
	if len(dir.queries) != 1 {
		t.Fatalf("expected a single query, got %v", dir.queries)
	}
}

func TestResolve_EmptyMatchIsNotAnError(t *testing.T) {
	dir := &fakeSearcher{byExpr: map[string][]directory.Computer{}}
	r := NewResolver(dir, nil)

	targets, err := r.Resolve(Selector{Kind: PatternSelector, Value: "NOPE-*"})
	if err != nil {
		t.Fatalf("empty match must not be an error, got: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected no targets, got %v", targets)
	}
}

func TestResolve_LookupFailurePropagates(t *testing.T) {
	dir := &fakeSearcher{err: errors.New("ldap result code 1")}
	r := NewResolver(dir, nil)

	if _, err := r.Resolve(Selector{Kind: HostSelector, Value: "HOST1"}); err == nil {
		t.Fatal("expected lookup failure to propagate")
	}
}

func TestResolve_PatternRewrittenBeforeLookup(t *testing.T) {
	dir := &fakeSearcher{
		byExpr: map[string][]directory.Computer{
			"DB-OP1-0*": {
				{Name: "DB-OP1-002", DNSHostName: "db-op1-002.corp.local"},
				{Name: "DB-OP1-001", DNSHostName: "db-op1-001.corp.local"},
				{Name: "DB-OP1-001", DNSHostName: "db-op1-001.corp.local"},
			},
		},
	}
	r := NewResolver(dir, nil)

	targets, err := r.Resolve(Selector{Kind: PatternSelector, Value: "DB-OP1-0**"})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if dir.queries[0] != "DB-OP1-0*" {
		t.Fatalf("pattern not rewritten, query was %q", dir.queries[0])
	}
	if len(targets) != 2 {
		t.Fatalf("expected deduplicated targets, got %v", targets)
	}
	if targets[0].Name != "DB-OP1-001" || targets[1].Name != "DB-OP1-002" {
		t.Fatalf("targets not sorted by name: %v", targets)
	}
}

func TestResolve_OUSelector(t *testing.T) {
	ou := "OU=Databases,DC=CORP,DC=LOCAL"
	dir := &fakeSearcher{
		byOU: map[string][]directory.Computer{
			ou: {
				{Name: "DB-1", DNSHostName: "db-1.corp.local", DN: "CN=DB-1," + ou},
				{Name: "DB-2"}, // record without an address survives resolution
			},
		},
	}
	r := NewResolver(dir, nil)

	targets, err := r.Resolve(Selector{Kind: OUSelector, Value: ou})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", targets)
	}
	if targets[1].HasAddress() {
		t.Fatal("address-less record must resolve with an empty address")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	dir := &fakeSearcher{
		byExpr: map[string][]directory.Computer{
			"DB-OP1-0*": {
				{Name: "DB-OP1-002"},
				{Name: "DB-OP1-001"},
			},
		},
	}
	r := NewResolver(dir, nil)
	sel := Selector{Kind: PatternSelector, Value: "DB-OP1-0*"}

	first, err := r.Resolve(sel)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(sel)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("resolve not idempotent: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("resolve not idempotent at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	targets := Dedupe([]Target{
		{Name: "A", Address: "a1"},
		{Name: "B", Address: "b"},
		{Name: "A", Address: "a2"},
	})
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", targets)
	}
	if targets[0].Address != "a1" {
		t.Fatalf("dedupe must keep the first occurrence, got %v", targets[0])
	}
}
