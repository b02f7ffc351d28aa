package session

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// auditTable mirrors the teacher's DefaultTables pattern in tdns/db.go:
// one CREATE TABLE IF NOT EXISTS statement per table this package owns.
const auditTable = `CREATE TABLE IF NOT EXISTS 'DiffSessions' (
id		  INTEGER PRIMARY KEY,
zone		  TEXT,
spool_path	  TEXT,
old_serial	  INTEGER,
new_serial	  INTEGER,
started_at	  TEXT,
completed_at	  TEXT,
outcome		  TEXT
)`

// AuditLog is a thin wrapper over a sqlite3 handle recording one row per
// diff session. A nil *AuditLog is valid and every method on it is a
// no-op: the audit log is observability, not a correctness dependency
// (spec §4.5.1), so a diff must never fail because the audit DB could
// not be opened.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (creating if needed) the sqlite3 database at path
// and ensures its schema exists, grounded on the teacher's NewKeyDB /
// dbSetupTables. An empty path disables the audit log entirely.
func OpenAuditLog(path string) (*AuditLog, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("session: opening audit db %q: %w", path, err)
	}
	stmt, err := db.Prepare(auditTable)
	if err != nil {
		return nil, fmt.Errorf("session: preparing audit schema: %w", err)
	}
	if _, err := stmt.Exec(); err != nil {
		return nil, fmt.Errorf("session: creating audit schema: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Close releases the underlying database handle.
func (a *AuditLog) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Record appends one audit row for a completed session. Perform calls
// it before returning; any write failure is logged, not returned, so
// the caller's diff result is not affected by an audit write failure.
func (a *AuditLog) Record(zone, spoolPath string, oldSerial, newSerial uint32, started, completed time.Time, outcome Kind) {
	if a == nil || a.db == nil {
		return
	}
	_, err := a.db.Exec(
		`INSERT INTO DiffSessions (zone, spool_path, old_serial, new_serial, started_at, completed_at, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		zone, spoolPath, oldSerial, newSerial,
		started.Format(time.RFC3339), completed.Format(time.RFC3339), outcome.String(),
	)
	if err != nil {
		log.Printf("ixfrdiff: session %s: audit log write failed: %v", zone, err)
	}
}
