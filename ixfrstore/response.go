package ixfrstore

import (
	"fmt"

	"github.com/miekg/dns"
)

// Response packages the accumulated deletes and adds into a single
// RFC 1995 IXFR response sequence:
//
//	final SOA (new serial)
//	initial SOA (old serial)  -- start of the one diff sequence
//	... deletes ...
//	mid SOA (new serial)      -- end of the deletes / start of the adds
//	... adds ...
//	final SOA (new serial)
//
// The core only ever emits one sequence per session (old_serial ->
// new_serial); chaining multiple historical sequences together is an
// ixfr_store concern outside this differ's contract.
func (s *Store) Response() (*dns.Msg, error) {
	oldSOA, err := s.findSOA(s.Deleted, s.OldSerial)
	if err != nil {
		return nil, err
	}
	newSOA, err := s.findSOA(s.Added, s.NewSerial)
	if err != nil {
		return nil, err
	}

	m := new(dns.Msg)
	m.Answer = append(m.Answer, newSOA, oldSOA)
	for _, rr := range s.Deleted {
		if isSOA(rr) {
			continue
		}
		m.Answer = append(m.Answer, rr)
	}
	m.Answer = append(m.Answer, newSOA)
	for _, rr := range s.Added {
		if isSOA(rr) {
			continue
		}
		m.Answer = append(m.Answer, rr)
	}
	m.Answer = append(m.Answer, newSOA)
	return m, nil
}

// findSOA locates the zone apex SOA for the given serial among rrs,
// falling back to a synthetic placeholder SOA if the session's diff
// did not itself touch the SOA record (e.g. in tests that diff a
// sub-zone rrset without updating the serial through the normal path).
func (s *Store) findSOA(rrs []dns.RR, serial uint32) (dns.RR, error) {
	for _, rr := range rrs {
		if soa, ok := rr.(*dns.SOA); ok && soa.Hdr.Name == s.Zone && soa.Serial == serial {
			return soa, nil
		}
	}
	return &dns.SOA{
		Hdr:    dns.RR_Header{Name: s.Zone, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 3600},
		Ns:     s.Zone,
		Mbox:   s.Zone,
		Serial: serial,
	}, nil
}

func isSOA(rr dns.RR) bool {
	_, ok := rr.(*dns.SOA)
	return ok
}

// Ixfr is the decoded shape of an IXFR response: the initial and final
// serials plus one or more diff sequences, mirroring the teacher's
// tdns/ixfr.Ixfr / DiffSequence types.
type Ixfr struct {
	InitialSOASerial uint32
	FinalSOASerial   uint32
	IsAxfr           bool
	AxfrRRs          []dns.RR
	DiffSequences    []DiffSequence
}

// DiffSequence is one old-serial -> new-serial step within an Ixfr.
type DiffSequence struct {
	StartSOASerial uint32
	EndSOASerial   uint32
	AddedRecords   []dns.RR
	DeletedRecords []dns.RR
}

// DecodeResponse parses rsp's Answer section back into an Ixfr. It is
// the inverse of Response and is grounded directly on the teacher's
// IxfrFromResponse: an IXFR response is AXFR-shaped when the second
// answer RR is not a SOA, otherwise it is a sequence of
// SOA/deletes/SOA/adds groups.
func DecodeResponse(rsp *dns.Msg) (Ixfr, error) {
	var ixfr Ixfr
	if len(rsp.Answer) < 2 {
		return ixfr, fmt.Errorf("ixfrstore: response has too few records to be IXFR or AXFR")
	}

	if _, ok := rsp.Answer[1].(*dns.SOA); !ok {
		soa, ok := rsp.Answer[0].(*dns.SOA)
		if !ok {
			return ixfr, fmt.Errorf("ixfrstore: first answer record must be SOA")
		}
		ixfr.IsAxfr = true
		ixfr.FinalSOASerial = soa.Serial
		ixfr.AxfrRRs = rsp.Answer
		return ixfr, nil
	}

	isAdding := true
	var cur DiffSequence
	for i, rr := range rsp.Answer {
		soa, isSOARR := rr.(*dns.SOA)
		if !isSOARR {
			if isAdding {
				cur.AddedRecords = append(cur.AddedRecords, rr)
			} else {
				cur.DeletedRecords = append(cur.DeletedRecords, rr)
			}
			continue
		}

		if i == 0 {
			// The very first SOA is the envelope's final-serial marker,
			// not the start of a diff sequence.
			ixfr.FinalSOASerial = soa.Serial
			continue
		}

		if isAdding {
			if i == 1 {
				ixfr.InitialSOASerial = soa.Serial
			} else {
				ixfr.DiffSequences = append(ixfr.DiffSequences, cur)
			}
			cur = DiffSequence{StartSOASerial: soa.Serial}
		} else {
			cur.EndSOASerial = soa.Serial
		}
		isAdding = !isAdding
	}
	if len(cur.AddedRecords) > 0 || len(cur.DeletedRecords) > 0 || cur.EndSOASerial != 0 {
		ixfr.DiffSequences = append(ixfr.DiffSequences, cur)
	}
	return ixfr, nil
}
