package diff

import (
	"fmt"

	"github.com/jschlyter/ixfrdiff/dnsname"
	"github.com/jschlyter/ixfrdiff/spool"
	"github.com/jschlyter/ixfrdiff/zone"
)

// Walk runs the outer domain merge of spec §4.3.1: it advances through
// newZone's canonical-order walk while keeping the spool's dname
// iterator caught up, emitting deletes for spool-only domains, adds
// for zone-only domains, and a per-RRset diff for domains present on
// both sides. Deletes and adds for a single session are emitted to
// sink in domain-canonical order. Within a domain present on both
// sides, the spooled rrsets are diffed one at a time, each rrset's
// deletes before its own adds, so a later rrset's deletes can follow an
// earlier rrset's adds; rrsets found only in the new zone are added last.
func Walk(sink Sink, it *spool.Iterator, newZone *zone.ZoneData) error {
	if err := it.Advance(); err != nil {
		return fmt.Errorf("diff: initial spool advance: %w", err)
	}

	walker := newZone.NewWalker()
	for {
		newOwner, ok := walker.Next()
		if !ok {
			break
		}
		newName, err := dnsname.FromString(newOwner.Name)
		if err != nil {
			return fmt.Errorf("diff: invalid new-zone owner name %q: %w", newOwner.Name, err)
		}

		if err := catchUpDeletes(sink, it, newName); err != nil {
			return err
		}

		switch {
		case it.Eof() || dnsname.Compare(it.Name(), newName) > 0:
			// D_new has no counterpart in the spool: whole-domain add.
			// The iterator is left un-marked so this spooled name (if
			// any) is reconsidered against the next new domain (spec
			// §9, open question 3).
			for _, rrtype := range newOwner.RRtypes.Keys() {
				rrset := newOwner.RRtypes.GetOnlyRRSet(rrtype)
				if err := emitNewRRsetAsAdds(sink, &rrset); err != nil {
					return err
				}
			}

		default: // dnsname.Compare(it.Name(), newName) == 0
			if err := diffDomain(sink, it, newOwner); err != nil {
				return err
			}
			if err := it.MarkProcessed(); err != nil {
				return fmt.Errorf("diff: marking %q processed: %w", newOwner.Name, err)
			}
			if err := it.Advance(); err != nil {
				return fmt.Errorf("diff: advancing past %q: %w", newOwner.Name, err)
			}
		}
	}

	// Drain: any spooled domains left are deletions (spec §4.3.1 step 3).
	for !it.Eof() {
		if err := deleteWholeHeldDomain(it, sink); err != nil {
			return err
		}
		if err := it.MarkProcessed(); err != nil {
			return fmt.Errorf("diff: marking drained domain processed: %w", err)
		}
		if err := it.Advance(); err != nil {
			return fmt.Errorf("diff: advancing during drain: %w", err)
		}
	}
	return nil
}

// catchUpDeletes consumes every spooled name strictly less than
// newName, emitting all of its RRs as deletes, until the iterator is
// at EOF or at a name >= newName.
func catchUpDeletes(sink Sink, it *spool.Iterator, newName dnsname.Name) error {
	for !it.Eof() && dnsname.Compare(it.Name(), newName) < 0 {
		if err := deleteWholeHeldDomain(it, sink); err != nil {
			return err
		}
		if err := it.MarkProcessed(); err != nil {
			return fmt.Errorf("diff: marking %q processed during catch-up: %w", it.Name(), err)
		}
		if err := it.Advance(); err != nil {
			return fmt.Errorf("diff: advancing during catch-up: %w", err)
		}
	}
	return nil
}

// deleteWholeHeldDomain reads every rrset of the iterator's currently
// held domain and emits it as deletes. Passing a nil sink is not
// supported; callers must supply the real sink (the nil check here
// only guards against a programmer error wiring this up wrong).
func deleteWholeHeldDomain(it *spool.Iterator, sink Sink) error {
	if sink == nil {
		return fmt.Errorf("diff: internal error: deleteWholeHeldDomain called without a sink")
	}
	ownerWire := []byte(it.Name())
	sets, err := it.SkipRemainingRRSets()
	if err != nil {
		return fmt.Errorf("diff: reading spooled rrsets for delete of %q: %w", it.Name(), err)
	}
	for _, set := range sets {
		for _, rr := range set.RRs {
			if err := sink.DelRRUncompressed(ownerWire, set.Type, set.Class, rr.TTL, rr.Rdata); err != nil {
				return fmt.Errorf("diff: emitting delete for %q: %w", it.Name(), err)
			}
		}
	}
	return nil
}
