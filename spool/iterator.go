package spool

import (
	"fmt"

	"github.com/jschlyter/ixfrdiff/dnsname"
)

// iterState is the dname iterator's state machine (spec §3 "Dname
// Iterator", §9 "Iterator as state machine"). advance() and
// markProcessed() are the only mutators; everything else is
// observation-only.
type iterState int

const (
	beforeFirst iterState = iota
	holding
	processed
	eof
)

// Iterator is a one-step-lookahead cursor over the spool's domain
// sequence. It lets the diff engine compare its current name against
// the live zone's current domain without consuming it — the merge-join
// cursor described in spec §4.2.
type Iterator struct {
	r     *Reader
	state iterState

	name      dnsname.Name
	rrsetLeft uint32 // rrset headers not yet consumed for the held domain
}

// NewIterator wraps r in a dname iterator. The first Advance performs
// the first read lazily.
func NewIterator(r *Reader) *Iterator {
	return &Iterator{r: r, state: beforeFirst}
}

// Advance reads the next not-yet-processed domain header. Its
// postcondition is: either Eof() is true, or Name() holds a domain the
// caller has not yet processed. Advance is only valid from
// beforeFirst or processed state; calling it while Holding (before
// MarkProcessed) is a programmer error.
func (it *Iterator) Advance() error {
	if it.state == holding {
		return fmt.Errorf("spool: Iterator.Advance called while still holding %q; call MarkProcessed first", it.name)
	}
	if it.state == eof {
		return nil
	}

	name, ok, err := it.r.ReadName()
	if err != nil {
		return err
	}
	if !ok {
		it.state = eof
		it.name = nil
		return nil
	}

	rrsetCount, err := it.r.ReadUint32()
	if err != nil {
		return err
	}
	if rrsetCount == 0 {
		return fmt.Errorf("%w: domain %q has rrset_count 0", ErrMalformedSpool, name)
	}

	it.name = name
	it.rrsetLeft = rrsetCount
	it.state = holding
	return nil
}

// Eof reports whether the spool is exhausted.
func (it *Iterator) Eof() bool {
	return it.state == eof
}

// Name returns the currently held domain name. Valid only when Eof()
// is false and the iterator has advanced at least once.
func (it *Iterator) Name() dnsname.Name {
	return it.name
}

// RRSetsRemaining returns how many rrset headers of the held domain
// have not yet been read via ReadRRSet.
func (it *Iterator) RRSetsRemaining() uint32 {
	return it.rrsetLeft
}

// ReadRRSet reads the next rrset header+body for the held domain. The
// caller must call it exactly RRSetsRemaining() times before
// MarkProcessed.
func (it *Iterator) ReadRRSet() (RRSet, error) {
	if it.state != holding {
		return RRSet{}, fmt.Errorf("spool: ReadRRSet called without a held domain")
	}
	if it.rrsetLeft == 0 {
		return RRSet{}, fmt.Errorf("spool: ReadRRSet called after all rrsets for %q were consumed", it.name)
	}
	set, err := it.r.ReadRRSet()
	if err != nil {
		return RRSet{}, err
	}
	it.rrsetLeft--
	return set, nil
}

// MarkProcessed tells the iterator the caller is done acting on the
// held domain. It is an error to call this before all of the domain's
// rrsets have been consumed via ReadRRSet, or when not holding a name.
func (it *Iterator) MarkProcessed() error {
	if it.state != holding {
		return fmt.Errorf("spool: MarkProcessed called without a held domain")
	}
	if it.rrsetLeft != 0 {
		return fmt.Errorf("spool: MarkProcessed called with %d unread rrsets remaining for %q", it.rrsetLeft, it.name)
	}
	it.state = processed
	return nil
}

// SkipRemainingRRSets drains any rrset headers/bodies the caller chose
// not to read individually (used when an entire domain is being
// emitted as deletes without per-rrset inspection).
func (it *Iterator) SkipRemainingRRSets() ([]RRSet, error) {
	var sets []RRSet
	for it.rrsetLeft > 0 {
		set, err := it.ReadRRSet()
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}
