package firewall

import (
	"fmt"
	"log"
	"os/exec"
)

// State tracks how far the installer got. There is no rollback: any
// failure mid-sequence leaves whatever partial-deny posture was last
// applied, which is deliberately fail-closed.
type State int

const (
	Unconfigured State = iota
	BaseInstalled
	Ready
)

func (s State) String() string {
	switch s {
	case BaseInstalled:
		return "base-installed"
	case Ready:
		return "ready"
	}
	return "unconfigured"
}

// InstallError is fatal to the boot sequence; the network is already
// fail-closed when it is returned.
type InstallError struct {
	Rule Rule
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("policy install failed at %q: %v", e.Rule, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Installer applies a table exactly once, in order, through an
// append-only packet-filter surface. No read-back is performed.
type Installer struct {
	// Run executes one rule. Defaults to invoking iptables/ip6tables.
	Run func(Rule) error
	// Journal records applied rules when non-nil.
	Journal *Journal

	state State
}

func (in *Installer) State() State { return in.state }

// Install walks the table: base rules first (default deny plus
// loopback/established), then role permits. Terminal; call once.
func (in *Installer) Install(t Table) error {
	run := in.Run
	if run == nil {
		run = execRule
	}

	hashes := make(map[string]struct{}, len(t.Base)+len(t.Role))
	apply := func(rules []Rule) error {
		for _, r := range rules {
			if err := run(r); err != nil {
				return &InstallError{Rule: r, Err: err}
			}
			h := hashRule(r)
			hashes[h] = struct{}{}
			if in.Journal != nil {
				in.Journal.Record(h, "apply", r.String())
			}
		}
		return nil
	}

	if err := apply(t.Base); err != nil {
		return err
	}
	in.state = BaseInstalled
	if err := apply(t.Role); err != nil {
		return err
	}
	in.state = Ready
	if in.Journal != nil {
		in.Journal.PurgeMissing(hashes)
	}
	log.Printf("network policy installed: %d base rules, %d role rules", len(t.Base), len(t.Role))
	return nil
}

func execRule(r Rule) error {
	cmd := exec.Command(r.Family.String(), r.Args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v failed: %v output=%s", r.Family, r.Args, err, string(out))
	}
	return nil
}
