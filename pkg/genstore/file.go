package genstore

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"edge-boot/pkg/model"
)

const (
	timestampFile = "last-generate"
	usersFile     = "users"
)

// FileStore reads the snapshot from a shared directory: a scalar unix
// timestamp in "last-generate" and "username secret" lines in "users".
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) LastGenerated() (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, timestampFile))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read generation timestamp: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		// regeneration in progress
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("warning: unparseable generation timestamp %q; treating as absent", raw)
		return time.Time{}, nil
	}
	return time.Unix(sec, 0), nil
}

func (s *FileStore) Load() (model.GenerationRecord, error) {
	ts, err := s.LastGenerated()
	if err != nil {
		return model.GenerationRecord{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, usersFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.GenerationRecord{GeneratedAt: ts}, nil
		}
		return model.GenerationRecord{}, fmt.Errorf("read users list: %w", err)
	}
	return model.GenerationRecord{
		GeneratedAt: ts,
		Users:       ParseUsers(string(data)),
	}, nil
}
