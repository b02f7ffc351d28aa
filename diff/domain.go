package diff

import (
	"fmt"

	"github.com/jschlyter/ixfrdiff/spool"
	"github.com/jschlyter/ixfrdiff/zone"
)

// diffDomain performs the per-domain RRset diff of spec §4.3.2
// (process_diff_domain) for a domain present on both sides: read every
// spooled rrset header for D_old, diff it against the matching new
// rrset if one exists (or emit it whole as deletes if not), then walk
// the new domain's rrsets and emit whole-adds for any type not seen on
// the spool side.
func diffDomain(sink Sink, it *spool.Iterator, newOwner zone.OwnerData) error {
	ownerWire := []byte(it.Name())
	marked := make(map[uint16]bool)

	for it.RRSetsRemaining() > 0 {
		set, err := it.ReadRRSet()
		if err != nil {
			return fmt.Errorf("diff: reading spooled rrset for %q: %w", it.Name(), err)
		}

		newRRset, ok := newOwner.RRtypes.Get(set.Type)
		if !ok {
			if err := emitSpoolRRsetAsDeletes(sink, ownerWire, set); err != nil {
				return err
			}
			continue
		}
		if err := rrsetDiff(sink, ownerWire, set.Type, set.Class, set.RRs, &newRRset); err != nil {
			return err
		}
		marked[set.Type] = true
	}

	for _, rrtype := range newOwner.RRtypes.Keys() {
		if marked[rrtype] {
			continue
		}
		rrset := newOwner.RRtypes.GetOnlyRRSet(rrtype)
		if err := emitNewRRsetAsAdds(sink, &rrset); err != nil {
			return err
		}
	}
	return nil
}
