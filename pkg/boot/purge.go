package boot

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Purger removes aged log files on a fixed interval and signals the
// daemon to reopen its handles. It runs independently of the boot
// sequence and never blocks it; once the daemon owns its current log
// files the purger only ever touches aged-out ones.
type Purger struct {
	Dir      string
	MaxAge   time.Duration
	Interval time.Duration
	// Signal tells the daemon to reopen log handles after a purge.
	Signal func() error
}

// Start runs the purge loop until stop is closed.
func (p *Purger) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := p.purge(); n > 0 && p.Signal != nil {
				if err := p.Signal(); err != nil {
					log.Printf("log reopen signal failed: %v", err)
				}
			}
		}
	}
}

func (p *Purger) purge() int {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		log.Printf("log purge read %s failed: %v", p.Dir, err)
		return 0
	}
	cutoff := time.Now().Add(-p.MaxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(p.Dir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("log purge remove %s failed: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("log purge removed %d aged files from %s", removed, p.Dir)
	}
	return removed
}
