package boot

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"
)

// ExecHandoff replaces the current process with the edge daemon, passing
// the rendered artifact paths as its arguments. It only returns on error.
func ExecHandoff(daemon string, args []string) error {
	path, err := exec.LookPath(daemon)
	if err != nil {
		return fmt.Errorf("locate daemon %s: %w", daemon, err)
	}
	argv := append([]string{daemon}, args...)
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", daemon, err)
	}
	return nil
}

// Signaler is the subset of *os.Process the relay needs.
type Signaler interface {
	Signal(os.Signal) error
}

// RelaySignals forwards every signal received on sigs to the supervised
// child until done is closed. In spawn mode the supervisor is the process
// the init system terminates, so SIGINT/SIGTERM must reach the daemon or
// it is left orphaned.
func RelaySignals(child Signaler, sigs <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-sigs:
			if err := child.Signal(sig); err != nil {
				log.Printf("warning: could not deliver %v to daemon: %v", sig, err)
			}
		case <-done:
			return
		}
	}
}

// SpawnHandoff starts the daemon as a supervised child instead. Used when
// a background task (the log purge timer) must outlive the handoff.
func SpawnHandoff(daemon string, args []string) (*exec.Cmd, error) {
	cmd := exec.Command(daemon, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", daemon, err)
	}
	return cmd, nil
}
