// Package firewall builds and applies the fail-closed network policy an
// edge process installs before it binds. Ordering is a construction-time
// invariant: the builder refuses permit rules on a chain that has no
// default-deny policy yet.
package firewall

import (
	"fmt"
	"strings"
)

// Family selects the packet-filter control surface for a rule.
type Family int

const (
	V4 Family = iota
	V6
)

func (f Family) String() string {
	if f == V6 {
		return "ip6tables"
	}
	return "iptables"
}

// Rule is one ordered packet-filter invocation.
type Rule struct {
	Family Family
	Chain  string
	Args   []string
}

func (r Rule) String() string {
	return r.Family.String() + " " + strings.Join(r.Args, " ")
}

// Table is the complete ordered policy: base rules establish the deny
// posture, role rules open the scoped permits.
type Table struct {
	Base []Rule
	Role []Rule
}

// Builder accumulates rules in order. Errors are collected and surfaced
// by Build, so construction chains read linearly.
type Builder struct {
	base     []Rule
	role     []Rule
	policies map[string]bool
	err      error
}

func NewBuilder() *Builder {
	return &Builder{policies: make(map[string]bool)}
}

func key(f Family, chain string) string {
	return fmt.Sprintf("%d/%s", f, chain)
}

// Policy sets the default policy for a chain. Deny-by-default must come
// before anything else for that chain.
func (b *Builder) Policy(f Family, chain, action string) *Builder {
	b.policies[key(f, chain)] = true
	b.base = append(b.base, Rule{Family: f, Chain: chain, Args: []string{"-P", chain, action}})
	return b
}

// Base appends a posture rule (loopback, established) to a chain.
func (b *Builder) Base(f Family, chain string, match ...string) *Builder {
	return b.append(&b.base, f, chain, match, "ACCEPT")
}

// Permit appends a role-specific accept rule.
func (b *Builder) Permit(f Family, chain string, match ...string) *Builder {
	return b.append(&b.role, f, chain, match, "ACCEPT")
}

// Deny appends an explicit drop, used for the standing private-range
// denies that follow any egress permit.
func (b *Builder) Deny(f Family, chain string, match ...string) *Builder {
	return b.append(&b.role, f, chain, match, "DROP")
}

func (b *Builder) append(dst *[]Rule, f Family, chain string, match []string, action string) *Builder {
	if !b.policies[key(f, chain)] {
		if b.err == nil {
			b.err = fmt.Errorf("rule on %s chain %s before its default policy", f, chain)
		}
		return b
	}
	args := append([]string{"-A", chain}, match...)
	args = append(args, "-j", action)
	*dst = append(*dst, Rule{Family: f, Chain: chain, Args: args})
	return b
}

// Build returns the ordered table or the first construction error.
func (b *Builder) Build() (Table, error) {
	if b.err != nil {
		return Table{}, b.err
	}
	return Table{Base: b.base, Role: b.role}, nil
}
