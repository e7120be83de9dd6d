package firewall

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

const DefaultJournalPath = "/var/lib/edge-boot/state.db"

// Journal keeps a local record of applied rules so operators can see
// what the installer did and stale entries can be purged across boots.
// All operations are best-effort; journal failures never block install.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (and initializes) the sqlite journal. A nil Journal
// with a logged warning is returned on failure.
func OpenJournal(path string) *Journal {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("journal init mkdir failed: %v", err)
		return nil
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		log.Printf("journal open failed: %v", err)
		return nil
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS rule_ops(rule_hash TEXT, op TEXT, detail TEXT, ts INTEGER); CREATE INDEX IF NOT EXISTS idx_rule_ops_hash ON rule_ops(rule_hash);`); err != nil {
		log.Printf("journal init schema failed: %v", err)
		_ = db.Close()
		return nil
	}
	return &Journal{db: db}
}

func (j *Journal) Close() {
	if j != nil && j.db != nil {
		_ = j.db.Close()
	}
}

// Record stores one operation against a rule hash.
func (j *Journal) Record(ruleHash, op, detail string) {
	if j == nil || j.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = j.db.ExecContext(ctx, `INSERT INTO rule_ops(rule_hash, op, detail, ts) VALUES(?,?,?,?)`, ruleHash, op, detail, time.Now().Unix())
}

// PurgeMissing drops journal entries for rules absent from the current
// table, recording the purge itself.
func (j *Journal) PurgeMissing(current map[string]struct{}) {
	if j == nil || j.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := j.db.QueryContext(ctx, `SELECT rule_hash FROM rule_ops GROUP BY rule_hash`)
	if err != nil {
		return
	}
	defer rows.Close()
	var stale []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			continue
		}
		if _, ok := current[h]; !ok {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		_, _ = j.db.ExecContext(ctx, `DELETE FROM rule_ops WHERE rule_hash=?`, h)
		j.Record(h, "purge", "rule no longer in table; records purged")
	}
}

// hashRule produces a stable hash for a rule to track apply/purge.
func hashRule(r Rule) string {
	b, _ := json.Marshal(r)
	h := blake2b.Sum256(b)
	return hex.EncodeToString(h[:])
}
