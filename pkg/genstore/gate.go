package genstore

import (
	"log"
	"time"

	"edge-boot/pkg/model"
)

// Outcome is the result of waiting for a fresh snapshot. A Degraded
// outcome carries an empty record: the caller proceeds without users
// rather than crash-looping.
type Outcome struct {
	Record   model.GenerationRecord
	Degraded bool
}

// Gate polls the Generation Store until it publishes a snapshot at least
// as new as the process's own start, bounded by Timeout. Timeout expiry
// is the only cancellation mechanism.
type Gate struct {
	Store    Store
	Interval time.Duration
	Timeout  time.Duration
}

// Await blocks until the store's timestamp reaches baseline or the
// timeout elapses. Baseline is compared at second granularity, matching
// the store's scalar resolution.
func (g Gate) Await(baseline time.Time) Outcome {
	interval := g.Interval
	if interval <= 0 {
		interval = time.Second
	}
	baseline = baseline.Truncate(time.Second)
	deadline := time.Now().Add(g.Timeout)

	for {
		ts, err := g.Store.LastGenerated()
		if err != nil {
			log.Printf("warning: generation store read failed: %v", err)
		} else if !ts.IsZero() && !ts.Before(baseline) {
			record, err := g.Store.Load()
			switch {
			case err != nil:
				log.Printf("warning: generation snapshot load failed: %v", err)
			case record.GeneratedAt.IsZero() || record.GeneratedAt.Before(baseline):
				// the writer emptied the scalar between the freshness
				// check and the load; the list may be half rewritten
				log.Printf("regeneration started mid-read; retrying")
			default:
				return Outcome{Record: record}
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Printf("warning: no fresh credential snapshot within %s; continuing with empty set", g.Timeout)
			return Outcome{Degraded: true}
		}
		if remaining < interval {
			time.Sleep(remaining)
		} else {
			time.Sleep(interval)
		}
	}
}
