package firewall

import (
	"strings"
	"testing"
)

func TestBuilderRejectsPermitBeforePolicy(t *testing.T) {
	_, err := NewBuilder().Permit(V4, "INPUT", "-p", "tcp", "--dport", "443").Build()
	if err == nil {
		t.Fatal("expected error for permit before default policy")
	}
}

func TestBuilderPolicyScopedPerChain(t *testing.T) {
	b := NewBuilder()
	b.Policy(V4, "INPUT", "DROP")
	b.Permit(V4, "FORWARD", "-s", "10.8.0.0/24")
	if _, err := b.Build(); err == nil {
		t.Fatal("policy on INPUT must not license permits on FORWARD")
	}
}

func TestBuilderPolicyScopedPerFamily(t *testing.T) {
	b := NewBuilder()
	b.Policy(V4, "INPUT", "DROP")
	b.Permit(V6, "INPUT", "-p", "tcp", "--dport", "443")
	if _, err := b.Build(); err == nil {
		t.Fatal("v4 policy must not license v6 permits")
	}
}

func TestBuildTableOrdering(t *testing.T) {
	table, err := BuildTable(
		[]Ingress{{Proto: "tcp", Port: "443"}},
		Peers{Subnet4: "10.8.0.0/24"},
		false,
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(table.Base) == 0 || table.Base[0].Args[0] != "-P" {
		t.Fatalf("table must open with a default policy, got %+v", table.Base)
	}
	for _, r := range table.Base[:2] {
		if r.Args[2] != "DROP" {
			t.Fatalf("default policy must deny, got %+v", r)
		}
	}

	var flat []string
	for _, r := range append(append([]Rule{}, table.Base...), table.Role...) {
		flat = append(flat, r.String())
	}
	all := strings.Join(flat, "\n")

	permitIdx := strings.Index(all, "--dport 443")
	establishedIdx := strings.Index(all, "RELATED,ESTABLISHED")
	if establishedIdx < 0 || permitIdx < 0 || establishedIdx > permitIdx {
		t.Fatalf("established permit must precede role permits:\n%s", all)
	}

	subnetIdx := strings.Index(all, "10.8.0.0/24")
	denyIdx := strings.Index(all, "10.0.0.0/8")
	if subnetIdx < 0 || denyIdx < 0 || denyIdx < subnetIdx {
		t.Fatalf("private-range deny must follow the egress permit:\n%s", all)
	}
}

func TestBuildTableNoEgressNoPrivateDeny(t *testing.T) {
	table, err := BuildTable([]Ingress{{Proto: "udp", Port: "53"}}, Peers{}, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, r := range table.Role {
		if strings.Contains(r.String(), "10.0.0.0/8") {
			t.Fatalf("private deny emitted without an egress permit: %+v", r)
		}
	}
}

func TestBuildTableDualStack(t *testing.T) {
	table, err := BuildTable(
		[]Ingress{{Proto: "tcp", Port: "443"}},
		Peers{Subnet4: "10.8.0.0/24", Subnet6: "fd00:8::/64"},
		true,
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var v6Base, v6Permit, v6Deny bool
	for _, r := range table.Base {
		if r.Family == V6 {
			v6Base = true
		}
	}
	for _, r := range table.Role {
		if r.Family != V6 {
			continue
		}
		s := r.String()
		if strings.Contains(s, "fd00:8::/64") {
			v6Permit = true
		}
		if strings.Contains(s, "fc00::/7") {
			v6Deny = true
		}
	}
	if !v6Base || !v6Permit || !v6Deny {
		t.Fatalf("missing v6 rules: base=%v permit=%v deny=%v", v6Base, v6Permit, v6Deny)
	}
}

func TestBuildTableDualStackMissingPeerDegrades(t *testing.T) {
	table, err := BuildTable(
		[]Ingress{{Proto: "tcp", Port: "443"}},
		Peers{Subnet4: "10.8.0.0/24"},
		true,
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, r := range table.Role {
		if r.Family == V6 && r.Chain == "FORWARD" {
			t.Fatalf("v6 forward rule emitted without a v6 peer: %+v", r)
		}
	}
	// the v6 base posture still installs fail-closed
	var v6Policy bool
	for _, r := range table.Base {
		if r.Family == V6 && r.Args[0] == "-P" {
			v6Policy = true
		}
	}
	if !v6Policy {
		t.Fatal("v6 default policy missing with dual-stack enabled")
	}
}

func TestBuildTableSingleStackHasNoV6(t *testing.T) {
	table, err := BuildTable([]Ingress{{Proto: "tcp", Port: "443"}}, Peers{Subnet6: "fd00::/64"}, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, r := range append(append([]Rule{}, table.Base...), table.Role...) {
		if r.Family == V6 {
			t.Fatalf("v6 rule emitted without the dual-stack flag: %+v", r)
		}
	}
}
