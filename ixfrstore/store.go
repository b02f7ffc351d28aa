// Package ixfrstore implements the ixfr_store collaborator (spec
// §6.2): it accumulates the adds and deletes the diff engine emits and
// packages them into an RFC 1995 IXFR response payload. It also
// implements the inverse operation, decoding a received IXFR response
// back into added/deleted RR sets, grounded on the teacher's
// tdns/ixfr package, so the wire format is exercised both ways.
package ixfrstore

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/jschlyter/ixfrdiff/rdata"
)

// Store accumulates one diff session's worth of deletes and adds
// between oldSerial and newSerial for Zone. It satisfies diff.Sink.
type Store struct {
	Zone      string
	OldSerial uint32
	NewSerial uint32

	Deleted []dns.RR
	Added   []dns.RR

	freed bool
}

// Start creates a store bound to (oldSerial, newSerial) for zone, per
// spec §4.5 ("create an ixfr_store bound to (old_serial, new_serial)").
func Start(zone string, oldSerial, newSerial uint32) *Store {
	return &Store{
		Zone:      dns.Fqdn(zone),
		OldSerial: oldSerial,
		NewSerial: newSerial,
	}
}

// AddRR adds one RR built from the live zone's atom array. The atoms
// are re-concatenated into canonical rdata and then parsed back into a
// dns.RR via rdata.DecodeRR, so both the add and delete paths end up
// producing a dns.RR through the same decoder — only their sources of
// canonical bytes differ (atoms here, spooled bytes on the delete path).
func (s *Store) AddRR(owner string, rrtype, class uint16, ttl uint32, atoms []rdata.Atom) error {
	if s.freed {
		return fmt.Errorf("ixfrstore: AddRR called on a freed store")
	}
	var rdbuf []byte
	for _, a := range atoms {
		rdbuf = append(rdbuf, a.Bytes...)
	}
	ownerWire, err := wireName(owner)
	if err != nil {
		return fmt.Errorf("ixfrstore: AddRR: %w", err)
	}
	rr, err := rdata.DecodeRR(ownerWire, rrtype, class, ttl, rdbuf)
	if err != nil {
		return fmt.Errorf("ixfrstore: AddRR: %w", err)
	}
	s.Added = append(s.Added, rr)
	return nil
}

// DelRRUncompressed adds one delete, given the spool's opaque
// owner-wire and rdata bytes.
func (s *Store) DelRRUncompressed(ownerWire []byte, rrtype, class uint16, ttl uint32, rdataBytes []byte) error {
	if s.freed {
		return fmt.Errorf("ixfrstore: DelRRUncompressed called on a freed store")
	}
	rr, err := rdata.DecodeRR(ownerWire, rrtype, class, ttl, rdataBytes)
	if err != nil {
		return fmt.Errorf("ixfrstore: DelRRUncompressed: %w", err)
	}
	s.Deleted = append(s.Deleted, rr)
	return nil
}

// Free releases the store. A store with no deletes and no adds
// represents an empty_diff — not an error (spec §7) — so Free never
// fails on that account.
func (s *Store) Free() {
	s.freed = true
}

// Empty reports whether this session produced no changes at all.
func (s *Store) Empty() bool {
	return len(s.Added) == 0 && len(s.Deleted) == 0
}

func wireName(s string) ([]byte, error) {
	buf := make([]byte, 255)
	off, err := dns.PackDomainName(dns.Fqdn(s), buf, 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("packing owner name %q: %w", s, err)
	}
	return buf[:off], nil
}
