package spool

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jschlyter/ixfrdiff/dnsname"
	"github.com/jschlyter/ixfrdiff/rdata"
)

// ErrMalformedSpool indicates a structurally invalid spool file: a
// dname longer than 255 octets, a short read mid-record, or an rdlen
// outside the 16-bit range.
var ErrMalformedSpool = errors.New("spool: malformed spool file")

// ErrStaleSnapshot indicates the spool's recorded apex or serial does
// not match what the session captured at start().
var ErrStaleSnapshot = errors.New("spool: stale snapshot")

// RR is one record as read from the spool: ttl plus canonical,
// uncompressed rdata bytes. It deliberately does not carry a parsed
// dns.RR — the delete path only needs opaque bytes (spec §6.2's
// asymmetry between addrr and delrr_uncompressed).
type RR struct {
	TTL   uint32
	Rdata []byte
}

// RRSet is one spooled (type, class, rr_count) header together with its
// RRs, as read for one owner.
type RRSet struct {
	Type  uint16
	Class uint16
	RRs   []RR
}

// Reader streams a spool file written by WriteZone. It exposes the
// low-level blocking-read primitives (u16, u32, length-prefixed dname)
// directly, plus header validation; domain-by-domain traversal is
// layered on top by Iterator.
type Reader struct {
	r   *bufio.Reader
	f   *os.File
	err error // sticky: once set, every subsequent read fails immediately
}

// Open opens path read-only for streaming.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spool: opening %q for read: %w", path, err)
	}
	return &Reader{r: bufio.NewReader(f), f: f}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("spool: closing spool file: %w", err)
	}
	return nil
}

func (r *Reader) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return r.err
}

// ReadUint16 reads one host-endian u16. A short read is fatal.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.err != nil {
		return 0, r.err
	}
	var buf [2]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, r.fail(fmt.Errorf("%w: short read of u16: %v", ErrMalformedSpool, err))
	}
	return hostOrder.Uint16(buf[:]), nil
}

// ReadUint32 reads one host-endian u32. A short read is fatal.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.err != nil {
		return 0, r.err
	}
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, r.fail(fmt.Errorf("%w: short read of u32: %v", ErrMalformedSpool, err))
	}
	return hostOrder.Uint32(buf[:]), nil
}

// ReadName reads one length-prefixed wire-format name (u16 length then
// bytes). A zero-length read yields the empty sentinel name with ok=false.
func (r *Reader) ReadName() (name dnsname.Name, ok bool, err error) {
	if r.err != nil {
		return nil, false, r.err
	}
	l, err := r.ReadUint16()
	if err != nil {
		return nil, false, err
	}
	if l == 0 {
		return nil, false, nil
	}
	if l > dnsname.MaxWireLength {
		return nil, false, r.fail(fmt.Errorf("%w: name_len %d exceeds 255", ErrMalformedSpool, l))
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, false, r.fail(fmt.Errorf("%w: short read of name body: %v", ErrMalformedSpool, err))
	}
	return dnsname.Name(buf), true, nil
}

// ReadHeader reads the spool header (apex name, serial) and validates
// it against the apex/serial recorded by the session at start(). A
// mismatch of either is a stale_snapshot failure (spec §4.2).
func (r *Reader) ReadHeader(wantApex dnsname.Name, wantSerial uint32) (uint32, error) {
	l, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	if l == 0 || l > dnsname.MaxWireLength {
		return 0, r.fail(fmt.Errorf("%w: invalid apex_len %d", ErrMalformedSpool, l))
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return 0, r.fail(fmt.Errorf("%w: short read of apex name: %v", ErrMalformedSpool, err))
	}
	gotApex := dnsname.Name(buf)

	serial, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}

	if !dnsname.Equal(gotApex, wantApex) {
		return 0, fmt.Errorf("%w: spool apex %q does not match session apex %q", ErrStaleSnapshot, gotApex, wantApex)
	}
	if serial != wantSerial {
		return 0, fmt.Errorf("%w: spool serial %d does not match session serial %d", ErrStaleSnapshot, serial, wantSerial)
	}
	return serial, nil
}

// ReadRRSet reads one (type, class, rr_count) header and its rr_count
// RRs. It must be called exactly rrset_count times for the current
// domain, in order, before the next domain header is read (the caller
// — normally Iterator's consumer — owns that bookkeeping).
func (r *Reader) ReadRRSet() (RRSet, error) {
	rrtype, err := r.ReadUint16()
	if err != nil {
		return RRSet{}, err
	}
	class, err := r.ReadUint16()
	if err != nil {
		return RRSet{}, err
	}
	rrCount, err := r.ReadUint16()
	if err != nil {
		return RRSet{}, err
	}

	set := RRSet{Type: rrtype, Class: class, RRs: make([]RR, 0, rrCount)}
	for i := uint16(0); i < rrCount; i++ {
		ttl, err := r.ReadUint32()
		if err != nil {
			return RRSet{}, err
		}
		rdlen, err := r.ReadUint16()
		if err != nil {
			return RRSet{}, err
		}
		if int(rdlen) > rdata.MaxRdlen {
			return RRSet{}, r.fail(fmt.Errorf("%w: rdlen %d exceeds 65535", ErrMalformedSpool, rdlen))
		}
		buf := make([]byte, rdlen)
		if _, err := io.ReadFull(r.r, buf); err != nil {
			return RRSet{}, r.fail(fmt.Errorf("%w: short read of rdata: %v", ErrMalformedSpool, err))
		}
		set.RRs = append(set.RRs, RR{TTL: ttl, Rdata: buf})
	}
	return set, nil
}
