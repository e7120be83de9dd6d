package inject

import (
	"fmt"
	"os"
	"strings"

	"edge-boot/pkg/model"
)

// Flat writes one line per credential in a fixed field order into a
// dedicated file. The file is always rewritten in full, never appended,
// so repeated synthesis is idempotent and self-correcting.
type Flat struct {
	Path  string
	Group string
}

// Render produces the file contents without touching the filesystem.
func (f Flat) Render(users []model.UserCredential) []byte {
	group := f.Group
	if group == "" {
		group = "defaults"
	}
	var b strings.Builder
	for _, u := range validUsers(users) {
		b.WriteString(u.Username)
		b.WriteByte(':')
		b.WriteString(group)
		b.WriteByte(':')
		b.WriteString(u.Secret)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Write truncates and rewrites the credential file.
func (f Flat) Write(users []model.UserCredential) error {
	if err := os.WriteFile(f.Path, f.Render(users), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}
