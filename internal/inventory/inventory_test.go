package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

const fleetYAML = `
groups:
  databases:
    - name: DB-OP1-002
      address: db-op1-002.corp.local
    - name: DB-OP1-001
      address: db-op1-001.corp.local
  web:
    - name: WEB-001
      address: web-001.corp.local
    - name: DB-OP1-001
      address: db-op1-001.corp.local
    - name: STANDALONE-01
`

func writeFleet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	fleet, err := Load(writeFleet(t, fleetYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	groups := fleet.GroupNames()
	if len(groups) != 2 || groups[0] != "databases" || groups[1] != "web" {
		t.Errorf("unexpected groups: %v", groups)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing fleet file")
	}
}

func TestLoad_EntryWithoutName(t *testing.T) {
	bad := `
groups:
  databases:
    - address: db-op1-001.corp.local
`
	if _, err := Load(writeFleet(t, bad)); err == nil {
		t.Fatal("expected an error for a nameless entry")
	}
}

func TestTargets_DedupedAndSorted(t *testing.T) {
	fleet, err := Load(writeFleet(t, fleetYAML))
	if err != nil {
		t.Fatal(err)
	}

	targets := fleet.Targets()
	if len(targets) != 4 {
		t.Fatalf("expected 4 deduplicated targets, got %v", targets)
	}
	for i := 1; i < len(targets); i++ {
		if targets[i-1].Name > targets[i].Name {
			t.Fatalf("targets not sorted: %v", targets)
		}
	}
}

func TestTargetsByGroup(t *testing.T) {
	fleet, err := Load(writeFleet(t, fleetYAML))
	if err != nil {
		t.Fatal(err)
	}

	targets, err := fleet.TargetsByGroup("databases")
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[0].Name != "DB-OP1-001" {
		t.Errorf("unexpected group targets: %v", targets)
	}

	if _, err := fleet.TargetsByGroup("unknown"); err == nil {
		t.Fatal("unknown group must be an error, the operator named it explicitly")
	}
}

func TestTargets_AddressOptional(t *testing.T) {
	fleet, err := Load(writeFleet(t, fleetYAML))
	if err != nil {
		t.Fatal(err)
	}

	targets, err := fleet.TargetsByGroup("web")
	if err != nil {
		t.Fatal(err)
	}
	for _, tgt := range targets {
		if tgt.Name == "STANDALONE-01" && tgt.HasAddress() {
			t.Error("entry without address must produce an address-less target")
		}
	}
}
