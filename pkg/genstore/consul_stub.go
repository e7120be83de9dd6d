//go:build !consul

package genstore

import (
	"log"
)

// NewConsulStore falls back to the file store when the consul build tag
// is not enabled.
func NewConsulStore(addr, token, prefix, dir string) (Store, error) {
	log.Printf("consul store requested (addr=%s) but consul build tag not enabled; using file store in %s", addr, dir)
	return NewFileStore(dir), nil
}
