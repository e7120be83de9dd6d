package genstore

import (
	"log"
	"strings"
	"time"

	"edge-boot/pkg/model"
)

// Store reads the Generation Store published by the identity service.
// The store is single-writer, multi-reader; readers never write.
type Store interface {
	// LastGenerated returns the snapshot timestamp, or the zero time when
	// no complete snapshot exists yet. A regeneration in progress reads as
	// "no snapshot": the writer empties the scalar before rewriting the
	// user list and only restores it once the list is complete.
	LastGenerated() (time.Time, error)

	// Load returns the current snapshot.
	Load() (model.GenerationRecord, error)
}

// ParseUsers decodes whitespace-delimited "username secret" lines.
// Malformed entries are skipped with a warning and duplicate usernames
// are dropped, keeping the remaining valid entries usable.
func ParseUsers(data string) []model.UserCredential {
	var users []model.UserCredential
	seen := make(map[string]bool)
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			log.Printf("warning: skipping malformed credential line %q", line)
			continue
		}
		username, err := model.ValidateUsername(fields[0])
		if err != nil {
			log.Printf("warning: skipping credential entry: %v", err)
			continue
		}
		if seen[username] {
			log.Printf("warning: skipping duplicate credential for %q", username)
			continue
		}
		seen[username] = true
		users = append(users, model.UserCredential{Username: username, Secret: fields[1]})
	}
	return users
}
