// Package inject adds the credential snapshot to rendered artifacts.
// A malformed credential entry is skipped with a warning; injection
// continues with the remaining valid entries.
package inject

import (
	"encoding/json"
	"fmt"
	"log"

	"edge-boot/pkg/model"
)

// Structured appends one client entry per credential to the designated
// inbound arrays of a JSON artifact. Fallback-transport entries are
// produced only when the corresponding feature flag enabled them.
type Structured struct {
	Domain            string
	PrimaryTag        string
	FallbackTag       string
	PrimaryTransport  string
	FallbackTransport string
	FallbackEnabled   bool
}

// Inject parses the rendered artifact, appends the clients and
// re-marshals deterministically so repeated synthesis from identical
// inputs is byte-identical.
func (s Structured) Inject(artifact []byte, users []model.UserCredential) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(artifact, &doc); err != nil {
		return nil, fmt.Errorf("parse structured artifact: %w", err)
	}

	valid := validUsers(users)
	if err := appendClients(doc, s.PrimaryTag, s.PrimaryTransport, s.Domain, valid); err != nil {
		return nil, err
	}
	if s.FallbackEnabled {
		if err := appendClients(doc, s.FallbackTag, s.FallbackTransport, s.Domain, valid); err != nil {
			return nil, err
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal structured artifact: %w", err)
	}
	return append(out, '\n'), nil
}

func appendClients(doc map[string]any, tag, transport, domain string, users []model.UserCredential) error {
	inbounds, ok := doc["inbounds"].([]any)
	if !ok {
		return fmt.Errorf("structured artifact has no inbounds array")
	}
	for _, raw := range inbounds {
		inbound, ok := raw.(map[string]any)
		if !ok || inbound["tag"] != tag {
			continue
		}
		settings, ok := inbound["settings"].(map[string]any)
		if !ok {
			settings = map[string]any{}
			inbound["settings"] = settings
		}
		clients, _ := settings["clients"].([]any)
		for _, u := range users {
			clients = append(clients, map[string]any{
				"id":        u.Secret,
				"email":     u.Identity(domain),
				"transport": transport,
			})
		}
		settings["clients"] = clients
		return nil
	}
	return fmt.Errorf("structured artifact has no inbound tagged %q", tag)
}

func validUsers(users []model.UserCredential) []model.UserCredential {
	out := make([]model.UserCredential, 0, len(users))
	for _, u := range users {
		if u.Secret == "" {
			log.Printf("warning: skipping credential with empty secret for %q", u.Username)
			continue
		}
		if _, err := model.ValidateUsername(u.Username); err != nil {
			log.Printf("warning: skipping credential entry: %v", err)
			continue
		}
		out = append(out, u)
	}
	return out
}
