// Package session implements the orchestrator: it owns a diff
// session's lifecycle (start/perform/free), the spool file it creates
// and tears down, the optional sqlite audit trail, and the YAML/viper
// configuration layer that drives cmd/ixfrgen.
package session

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/jschlyter/ixfrdiff/diff"
	"github.com/jschlyter/ixfrdiff/dnsname"
	"github.com/jschlyter/ixfrdiff/ixfrstore"
	"github.com/jschlyter/ixfrdiff/spool"
	"github.com/jschlyter/ixfrdiff/zone"
)

// Session is a diff session (spec §3 "Diff Session" / `ixfr_create`):
// the apex owner, the serial observed at start(), and the path of the
// spool file this session exclusively owns. new_serial and the final
// outcome are only known after perform().
type Session struct {
	ZoneName  string
	OldSerial uint32
	NewSerial uint32
	SpoolPath string

	startedAt time.Time
	freed     bool
}

// Manager tracks in-flight and completed sessions for the status
// endpoint and owns the (optional) audit log. It mirrors the teacher's
// pattern of a small long-lived struct (like KeyDB) threaded through
// the CLI and HTTP layers.
type Manager struct {
	Audit *AuditLog

	mu       sync.Mutex
	sessions []*Session
}

// NewManager constructs a Manager, opening the audit log at auditDBPath
// if non-empty.
func NewManager(auditDBPath string) (*Manager, error) {
	audit, err := OpenAuditLog(auditDBPath)
	if err != nil {
		return nil, err
	}
	return &Manager{Audit: audit}, nil
}

// Sessions returns a snapshot of the sessions this manager has seen,
// for the status endpoint.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

func (m *Manager) track(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
}

// Start captures a snapshot of zd (the zone as it is now, at its
// current serial) and writes it to a spool file of the form
// "<spoolDir>/<zone>.spoolzone.<pid>" (spec §3), exclusively owned by
// the returned Session.
func (m *Manager) Start(zd *zone.ZoneData, spoolDir string) (*Session, error) {
	sess := &Session{
		ZoneName:  zd.ZoneName,
		OldSerial: zd.CurrentSerial,
		SpoolPath: fmt.Sprintf("%s/%s.spoolzone.%d", spoolDir, dnsname.StripTrailingDot(zd.ZoneName), os.Getpid()),
		startedAt: time.Now(),
	}

	if err := spool.WriteZone(zd, sess.SpoolPath, sess.OldSerial); err != nil {
		m.recordFailure(sess, IOError)
		return nil, newError(sess.ZoneName, IOError, err)
	}

	m.track(sess)
	return sess, nil
}

// Perform reopens sess's spool file, validates its header against the
// apex/serial recorded at Start, runs the diff engine against newZone
// through a fresh ixfr_store, then closes and frees that store (spec
// §4.5), returning the IXFR response it packaged. A diff that produces
// no changes at all is reported via the EmptyDiff kind, not as an
// error (spec §7): the returned response and error are both nil in
// that case, and the caller should treat it as "nothing to send".
func (m *Manager) Perform(sess *Session, newZone *zone.ZoneData) (*dns.Msg, error) {
	if sess.freed {
		return nil, newError(sess.ZoneName, IOError, fmt.Errorf("session already freed"))
	}

	apex, err := dnsname.FromString(sess.ZoneName)
	if err != nil {
		m.recordFailure(sess, MalformedSpool)
		return nil, newError(sess.ZoneName, MalformedSpool, err)
	}

	r, err := spool.Open(sess.SpoolPath)
	if err != nil {
		m.recordFailure(sess, IOError)
		return nil, newError(sess.ZoneName, IOError, err)
	}
	defer r.Close()

	if _, err := r.ReadHeader(apex, sess.OldSerial); err != nil {
		kind := IOError
		switch {
		case isStaleSnapshot(err):
			kind = StaleSnapshot
		case isMalformedSpool(err):
			kind = MalformedSpool
		}
		m.recordFailure(sess, kind)
		return nil, newError(sess.ZoneName, kind, err)
	}

	sess.NewSerial = newZone.CurrentSerial
	store := ixfrstore.Start(sess.ZoneName, sess.OldSerial, sess.NewSerial)

	it := spool.NewIterator(r)
	if err := diff.Walk(store, it, newZone); err != nil {
		kind := IOError
		if isMalformedSpool(err) {
			kind = MalformedSpool
		}
		m.recordFailure(sess, kind)
		return nil, newError(sess.ZoneName, kind, err)
	}

	outcome := OK
	empty := store.Empty()
	if empty {
		outcome = EmptyDiff
	}
	if m.Audit != nil {
		m.Audit.Record(sess.ZoneName, sess.SpoolPath, sess.OldSerial, sess.NewSerial, sess.startedAt, time.Now(), outcome)
	}

	if empty {
		store.Free()
		return nil, nil
	}

	rsp, err := store.Response()
	store.Free()
	if err != nil {
		return nil, newError(sess.ZoneName, IOError, fmt.Errorf("packaging ixfr response: %w", err))
	}
	return rsp, nil
}

// Free releases sess's holdings and unlinks its spool file. The spec's
// original design note leaves spool cleanup to the caller; this
// implementation tightens that to unlink-on-free, since the session is
// the path's exclusive owner and nothing else can reasonably clean it
// up once the session forgets it.
func (m *Manager) Free(sess *Session) error {
	if sess.freed {
		return nil
	}
	sess.freed = true
	if err := os.Remove(sess.SpoolPath); err != nil && !os.IsNotExist(err) {
		return newError(sess.ZoneName, IOError, fmt.Errorf("removing spool file: %w", err))
	}
	return nil
}

func (m *Manager) recordFailure(sess *Session, kind Kind) {
	if m.Audit != nil {
		m.Audit.Record(sess.ZoneName, sess.SpoolPath, sess.OldSerial, sess.NewSerial, sess.startedAt, time.Now(), kind)
	}
}

func isStaleSnapshot(err error) bool {
	return errors.Is(err, spool.ErrStaleSnapshot)
}

func isMalformedSpool(err error) bool {
	return errors.Is(err, spool.ErrMalformedSpool)
}
