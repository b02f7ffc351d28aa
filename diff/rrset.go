package diff

import (
	"bytes"
	"fmt"

	"github.com/jschlyter/ixfrdiff/rdata"
	"github.com/jschlyter/ixfrdiff/spool"
	"github.com/jschlyter/ixfrdiff/zone"
)

// rrsetDiff performs the per-RR diff of spec §4.3.3 (process_diff_rrset):
// pair each spooled RR against the new rrset by (ttl, canonical rdata),
// emit unmatched spooled RRs as deletes and unmatched new RRs as adds.
//
// ownerWire is the spooled owner's uncompressed wire name, needed for
// DelRRUncompressed; class is the spooled rrset's class.
func rrsetDiff(sink Sink, ownerWire []byte, rrtype, class uint16, oldRRs []spool.RR, newRRset *zone.RRset) error {
	marked := make([]bool, len(newRRset.RRs))
	newEnc := make([][]byte, len(newRRset.RRs))
	for i, rr := range newRRset.RRs {
		enc, err := rdata.Encode(rr)
		if err != nil {
			return fmt.Errorf("diff: encoding new RR %s: %w", rr.String(), err)
		}
		newEnc[i] = enc
	}

	for _, old := range oldRRs {
		found := -1
		for i, enc := range newEnc {
			if marked[i] {
				continue
			}
			if newRRset.RRs[i].Header().Ttl == old.TTL && bytes.Equal(enc, old.Rdata) {
				found = i
				break
			}
		}
		if found >= 0 {
			marked[found] = true
			continue
		}
		if err := sink.DelRRUncompressed(ownerWire, rrtype, class, old.TTL, old.Rdata); err != nil {
			return fmt.Errorf("diff: emitting delete: %w", err)
		}
	}

	for i, rr := range newRRset.RRs {
		if marked[i] {
			continue
		}
		atoms, err := rdata.Atoms(rr)
		if err != nil {
			return fmt.Errorf("diff: decomposing add RR %s: %w", rr.String(), err)
		}
		if err := sink.AddRR(newRRset.Name, rrtype, rr.Header().Class, rr.Header().Ttl, atoms); err != nil {
			return fmt.Errorf("diff: emitting add: %w", err)
		}
	}
	return nil
}

// emitSpoolRRsetAsDeletes emits every RR of a spooled rrset as a delete,
// used when the new zone has no rrset of this (owner, type) at all
// (spec §4.3.2, process_spool_delrrset).
func emitSpoolRRsetAsDeletes(sink Sink, ownerWire []byte, set spool.RRSet) error {
	for _, rr := range set.RRs {
		if err := sink.DelRRUncompressed(ownerWire, set.Type, set.Class, rr.TTL, rr.Rdata); err != nil {
			return fmt.Errorf("diff: emitting whole-rrset delete: %w", err)
		}
	}
	return nil
}

// emitNewRRsetAsAdds emits every RR of a live rrset as an add, used
// when the old zone has no rrset of this (owner, type) at all, or the
// owner itself is new (spec §4.3.1/§4.3.2).
func emitNewRRsetAsAdds(sink Sink, rrset *zone.RRset) error {
	for _, rr := range rrset.RRs {
		atoms, err := rdata.Atoms(rr)
		if err != nil {
			return fmt.Errorf("diff: decomposing add RR %s: %w", rr.String(), err)
		}
		if err := sink.AddRR(rrset.Name, rrset.RRtype, rr.Header().Class, rr.Header().Ttl, atoms); err != nil {
			return fmt.Errorf("diff: emitting whole-rrset add: %w", err)
		}
	}
	return nil
}
