package firewall

import (
	"errors"
	"testing"
)

func testTable(t *testing.T) Table {
	t.Helper()
	table, err := BuildTable([]Ingress{{Proto: "tcp", Port: "443"}}, Peers{Subnet4: "10.8.0.0/24"}, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return table
}

func TestInstallAppliesInOrder(t *testing.T) {
	table := testTable(t)
	var applied []string
	in := &Installer{Run: func(r Rule) error {
		applied = append(applied, r.String())
		return nil
	}}
	if err := in.Install(table); err != nil {
		t.Fatalf("install: %v", err)
	}
	if in.State() != Ready {
		t.Fatalf("expected Ready, got %v", in.State())
	}
	if len(applied) != len(table.Base)+len(table.Role) {
		t.Fatalf("expected %d applications, got %d", len(table.Base)+len(table.Role), len(applied))
	}
	if applied[0] != table.Base[0].String() {
		t.Fatalf("rules applied out of order: %v", applied[0])
	}
}

func TestInstallFailClosedOnFirstRule(t *testing.T) {
	table := testTable(t)
	boom := errors.New("boom")
	in := &Installer{Run: func(Rule) error { return boom }}

	err := in.Install(table)
	if err == nil {
		t.Fatal("expected install error")
	}
	var ierr *InstallError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InstallError, got %T", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	if in.State() != Unconfigured {
		t.Fatalf("state advanced past a failed base rule: %v", in.State())
	}
}

func TestInstallPartialFailureKeepsBaseState(t *testing.T) {
	table := testTable(t)
	n := 0
	in := &Installer{Run: func(Rule) error {
		n++
		if n > len(table.Base) {
			return errors.New("role rule rejected")
		}
		return nil
	}}
	if err := in.Install(table); err == nil {
		t.Fatal("expected install error")
	}
	// base posture survived: deny-by-default is already active
	if in.State() != BaseInstalled {
		t.Fatalf("expected BaseInstalled, got %v", in.State())
	}
}

func TestJournalRecordsAndPurges(t *testing.T) {
	j := OpenJournal(t.TempDir() + "/state.db")
	if j == nil {
		t.Fatal("journal open failed")
	}
	defer j.Close()

	table := testTable(t)
	in := &Installer{Run: func(Rule) error { return nil }, Journal: j}
	if err := in.Install(table); err != nil {
		t.Fatalf("install: %v", err)
	}

	// a second install with a smaller table purges the stale hashes
	smaller, err := BuildTable([]Ingress{{Proto: "tcp", Port: "443"}}, Peers{}, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	in2 := &Installer{Run: func(Rule) error { return nil }, Journal: j}
	if err := in2.Install(smaller); err != nil {
		t.Fatalf("reinstall: %v", err)
	}

	stale := hashRule(Rule{Family: V4, Chain: "FORWARD", Args: []string{"-A", "FORWARD", "-s", "10.8.0.0/24", "-j", "ACCEPT"}})
	var applies int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM rule_ops WHERE rule_hash = ? AND op = 'apply'`, stale).Scan(&applies); err != nil {
		t.Fatalf("query journal: %v", err)
	}
	if applies != 0 {
		t.Fatalf("stale rule hash not purged: %d apply rows remain", applies)
	}

	kept := hashRule(smaller.Base[0])
	var keptRows int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM rule_ops WHERE rule_hash = ?`, kept).Scan(&keptRows); err != nil {
		t.Fatalf("query journal: %v", err)
	}
	if keptRows == 0 {
		t.Fatal("current rule hash missing from journal")
	}
}
