package identity

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edge-boot/pkg/model"
)

// Exporter writes the Generation Store files from the identity database.
type Exporter struct {
	DB  *gorm.DB
	Dir string

	writeFile func(name string, data []byte, perm os.FileMode) error // defaults to os.WriteFile
}

// Export snapshots all users with an active plan.
func (e *Exporter) Export() error {
	var users []User
	if err := e.DB.Order("username").Find(&users).Error; err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	return e.write(users, time.Now())
}

// write publishes the snapshot. The order makes the non-atomic window
// observable to readers: the timestamp scalar is emptied first, the user
// list rewritten, and only then is the new timestamp published. A reader
// polling the scalar sees either the old complete snapshot or the new
// one, never a partial list as fresh.
func (e *Exporter) write(users []User, now time.Time) error {
	wf := e.writeFile
	if wf == nil {
		wf = os.WriteFile
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir store: %w", err)
	}
	tsPath := filepath.Join(e.Dir, "last-generate")
	if err := wf(tsPath, nil, 0o644); err != nil {
		return fmt.Errorf("clear generation timestamp: %w", err)
	}

	var b strings.Builder
	count := 0
	for _, u := range users {
		if !u.HasActivePlan(now) {
			continue
		}
		username, err := model.ValidateUsername(u.Username)
		if err != nil {
			log.Printf("warning: not exporting user: %v", err)
			continue
		}
		b.WriteString(username)
		b.WriteByte(' ')
		b.WriteString(u.UUID)
		b.WriteByte('\n')
		count++
	}
	if err := wf(filepath.Join(e.Dir, "users"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write users list: %w", err)
	}

	if err := wf(tsPath, []byte(strconv.FormatInt(now.Unix(), 10)), 0o644); err != nil {
		return fmt.Errorf("write generation timestamp: %w", err)
	}
	log.Printf("generation snapshot exported: %d active users", count)
	return nil
}

// AddUser creates an account with a fresh random secret and returns its
// credentials.
func (e *Exporter) AddUser(username string) (model.UserCredential, error) {
	username, err := model.ValidateUsername(username)
	if err != nil {
		return model.UserCredential{}, err
	}
	u := User{Username: username, UUID: uuid.NewString(), CreatedAt: time.Now()}
	if err := e.DB.Create(&u).Error; err != nil {
		return model.UserCredential{}, fmt.Errorf("create user: %w", err)
	}
	log.Printf("user %q created", username)
	return model.UserCredential{Username: username, Secret: u.UUID}, nil
}

// DeleteUser removes an account.
func (e *Exporter) DeleteUser(username string) error {
	username, err := model.ValidateUsername(username)
	if err != nil {
		return err
	}
	res := e.DB.Delete(&User{}, "username = ?", username)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %q does not exist", username)
	}
	log.Printf("user %q deleted", username)
	return nil
}
