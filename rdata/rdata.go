// Package rdata implements the canonical uncompressed encoding of RR
// rdata: the atom model described by the spool format, and byte-for-byte
// comparison used by the diff engine's per-RR matching.
package rdata

import (
	"encoding/binary"
	"fmt"

	"github.com/miekg/dns"
)

// Atom is one element of an RR's rdata, in declaration order. A domain
// atom carries an uncompressed wire-format name; a raw atom carries an
// arbitrary octet run (its length travels with the atom itself).
type Atom struct {
	IsName bool
	Bytes  []byte
}

func nameAtom(s string) (Atom, error) {
	buf := make([]byte, 255)
	off, err := dns.PackDomainName(dns.Fqdn(s), buf, 0, nil, false)
	if err != nil {
		return Atom{}, fmt.Errorf("rdata: packing name %q: %w", s, err)
	}
	return Atom{IsName: true, Bytes: buf[:off]}, nil
}

func rawAtom(b []byte) Atom {
	return Atom{Bytes: b}
}

// Atoms decomposes rr's rdata into its atom sequence. Every atom carries
// either a domain name (uncompressed) or a raw octet run. RR types not
// explicitly handled fall back to a single opaque raw atom covering the
// whole canonical rdata (see rawFallback); this is still exact for the
// byte-equality comparisons the diff engine relies on, it just does not
// expose internal domain-name boundaries within an otherwise-unknown type.
func Atoms(rr dns.RR) ([]Atom, error) {
	switch r := rr.(type) {
	case *dns.A:
		return []Atom{rawAtom(r.A.To4())}, nil

	case *dns.AAAA:
		return []Atom{rawAtom(r.AAAA.To16())}, nil

	case *dns.NS:
		n, err := nameAtom(r.Ns)
		if err != nil {
			return nil, err
		}
		return []Atom{n}, nil

	case *dns.CNAME:
		n, err := nameAtom(r.Target)
		if err != nil {
			return nil, err
		}
		return []Atom{n}, nil

	case *dns.DNAME:
		n, err := nameAtom(r.Target)
		if err != nil {
			return nil, err
		}
		return []Atom{n}, nil

	case *dns.PTR:
		n, err := nameAtom(r.Ptr)
		if err != nil {
			return nil, err
		}
		return []Atom{n}, nil

	case *dns.MX:
		pref := make([]byte, 2)
		binary.BigEndian.PutUint16(pref, r.Preference)
		n, err := nameAtom(r.Mx)
		if err != nil {
			return nil, err
		}
		return []Atom{rawAtom(pref), n}, nil

	case *dns.SOA:
		ns, err := nameAtom(r.Ns)
		if err != nil {
			return nil, err
		}
		mbox, err := nameAtom(r.Mbox)
		if err != nil {
			return nil, err
		}
		tail := make([]byte, 20)
		binary.BigEndian.PutUint32(tail[0:4], r.Serial)
		binary.BigEndian.PutUint32(tail[4:8], r.Refresh)
		binary.BigEndian.PutUint32(tail[8:12], r.Retry)
		binary.BigEndian.PutUint32(tail[12:16], r.Expire)
		binary.BigEndian.PutUint32(tail[16:20], r.Minttl)
		return []Atom{ns, mbox, rawAtom(tail)}, nil

	case *dns.TXT:
		var atoms []Atom
		for _, s := range r.Txt {
			b := []byte(s)
			chunk := make([]byte, 1+len(b))
			chunk[0] = byte(len(b))
			copy(chunk[1:], b)
			atoms = append(atoms, rawAtom(chunk))
		}
		if len(atoms) == 0 {
			atoms = append(atoms, rawAtom([]byte{0}))
		}
		return atoms, nil

	case *dns.SRV:
		head := make([]byte, 6)
		binary.BigEndian.PutUint16(head[0:2], r.Priority)
		binary.BigEndian.PutUint16(head[2:4], r.Weight)
		binary.BigEndian.PutUint16(head[4:6], r.Port)
		n, err := nameAtom(r.Target)
		if err != nil {
			return nil, err
		}
		return []Atom{rawAtom(head), n}, nil

	default:
		b, err := rawFallback(rr)
		if err != nil {
			return nil, err
		}
		return []Atom{rawAtom(b)}, nil
	}
}

// rawFallback packs rr uncompressed (owner name, type, class, ttl and
// rdata all written without name compression) and returns just the
// rdata portion. It is used for RR types without an explicit atom
// breakdown above.
func rawFallback(rr dns.RR) ([]byte, error) {
	buf := make([]byte, dns.Len(rr)+1)
	off, err := dns.PackRR(rr, buf, 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("rdata: packing fallback RR: %w", err)
	}
	buf = buf[:off]

	nameLen, err := skipWireName(buf)
	if err != nil {
		return nil, err
	}
	// type(2) + class(2) + ttl(4) + rdlength(2)
	hdr := nameLen + 10
	if hdr > len(buf) {
		return nil, fmt.Errorf("rdata: packed RR shorter than its own header")
	}
	rdlen := int(binary.BigEndian.Uint16(buf[hdr-2 : hdr]))
	if hdr+rdlen != len(buf) {
		return nil, fmt.Errorf("rdata: rdlength mismatch in fallback encoding")
	}
	return buf[hdr:], nil
}

func skipWireName(buf []byte) (int, error) {
	i := 0
	for {
		if i >= len(buf) {
			return 0, fmt.Errorf("rdata: truncated owner name")
		}
		ll := int(buf[i])
		if ll == 0 {
			return i + 1, nil
		}
		if ll > 63 {
			return 0, fmt.Errorf("rdata: compressed or invalid label in uncompressed pack")
		}
		i += 1 + ll
	}
}

// Encode concatenates the atoms of rr into the canonical uncompressed
// rdata encoding described by the spool format: domain atoms as raw
// wire-format names (no pointers), raw atoms verbatim, in declaration
// order.
func Encode(rr dns.RR) ([]byte, error) {
	atoms, err := Atoms(rr)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, a := range atoms {
		out = append(out, a.Bytes...)
	}
	return out, nil
}

// MaxRdlen is the largest value a 16-bit rdlen field can carry.
const MaxRdlen = 65535

// DecodeRR reconstructs a dns.RR from the flat, uncompressed wire pieces
// the spool reader produces: an uncompressed owner name, the class/type/
// ttl header fields, and the canonical rdata bytes. It is the inverse of
// Encode and is used on the delete path, where the diff engine only has
// opaque spooled bytes to work with (see the ixfr_store asymmetry).
func DecodeRR(ownerWire []byte, rrtype, class uint16, ttl uint32, rdata []byte) (dns.RR, error) {
	buf := make([]byte, 0, len(ownerWire)+10+len(rdata))
	buf = append(buf, ownerWire...)
	var hdr [10]byte
	binary.BigEndian.PutUint16(hdr[0:2], rrtype)
	binary.BigEndian.PutUint16(hdr[2:4], class)
	binary.BigEndian.PutUint32(hdr[4:8], ttl)
	binary.BigEndian.PutUint16(hdr[8:10], uint16(len(rdata)))
	buf = append(buf, hdr[:]...)
	buf = append(buf, rdata...)

	rr, _, err := dns.UnpackRR(buf, 0)
	if err != nil {
		return nil, fmt.Errorf("rdata: DecodeRR: %w", err)
	}
	return rr, nil
}
