// Package boot orders the startup of one edge process: install the
// network policy, wait for a fresh credential snapshot, synthesize the
// runtime configuration, then hand execution off to the edge daemon.
// No stage is retried; restarts belong to the external supervisor.
package boot

import (
	"fmt"
	"log"
	"time"

	"edge-boot/pkg/genstore"
	"edge-boot/pkg/model"
)

// Sequencer runs the fixed stage order exactly once. The stage funcs are
// fields so the ordering and failure policy can be exercised directly.
type Sequencer struct {
	// Install applies the fail-closed policy. Failure is fatal and must
	// happen before any network-facing action.
	Install func() error
	// Await blocks for a fresh snapshot; its timeout produces a degraded
	// outcome, never a failure.
	Await func(baseline time.Time) genstore.Outcome
	// Synthesize renders the config artifacts for the snapshot and
	// returns their paths. Failure is fatal.
	Synthesize func(record model.GenerationRecord) ([]string, error)
	// Handoff replaces (or spawns) the edge daemon with the artifact
	// paths as its arguments. It only returns on error, or with the
	// daemon's exit status in spawn mode.
	Handoff func(artifacts []string) error
}

// Run executes the sequence against the given start baseline.
func (s *Sequencer) Run(baseline time.Time) error {
	if err := s.Install(); err != nil {
		return fmt.Errorf("network policy: %w", err)
	}

	outcome := s.Await(baseline)
	if outcome.Degraded {
		log.Printf("booting degraded: no users provisioned yet")
	} else {
		log.Printf("credential snapshot generated at %s with %d users", outcome.Record.GeneratedAt.UTC().Format(time.RFC3339), len(outcome.Record.Users))
	}

	artifacts, err := s.Synthesize(outcome.Record)
	if err != nil {
		return fmt.Errorf("config synthesis: %w", err)
	}

	return s.Handoff(artifacts)
}
