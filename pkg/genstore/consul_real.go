//go:build consul

package genstore

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"

	"edge-boot/pkg/model"
)

// ConsulStore reads the snapshot from Consul KV under a key prefix, with
// the same scalar-plus-list shape as the file layout.
type ConsulStore struct {
	kv     *consulapi.KV
	prefix string
}

// NewConsulStore connects to Consul. The dir argument is the file-store
// fallback used by non-consul builds and is ignored here.
func NewConsulStore(addr, token, prefix, dir string) (Store, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	if token != "" {
		cfg.Token = token
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client init: %w", err)
	}
	if prefix == "" {
		prefix = "edge-boot/generation"
	}
	return &ConsulStore{kv: cli.KV(), prefix: strings.TrimSuffix(prefix, "/")}, nil
}

func (s *ConsulStore) LastGenerated() (time.Time, error) {
	kv, _, err := s.kv.Get(s.prefix+"/last-generate", nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("consul get timestamp: %w", err)
	}
	if kv == nil {
		return time.Time{}, nil
	}
	raw := strings.TrimSpace(string(kv.Value))
	if raw == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("warning: unparseable generation timestamp %q in consul; treating as absent", raw)
		return time.Time{}, nil
	}
	return time.Unix(sec, 0), nil
}

func (s *ConsulStore) Load() (model.GenerationRecord, error) {
	ts, err := s.LastGenerated()
	if err != nil {
		return model.GenerationRecord{}, err
	}
	kv, _, err := s.kv.Get(s.prefix+"/users", nil)
	if err != nil {
		return model.GenerationRecord{}, fmt.Errorf("consul get users: %w", err)
	}
	if kv == nil {
		return model.GenerationRecord{GeneratedAt: ts}, nil
	}
	return model.GenerationRecord{
		GeneratedAt: ts,
		Users:       ParseUsers(string(kv.Value)),
	}, nil
}
