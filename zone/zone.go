// Package zone is a minimal in-memory zone database standing in for the
// authoritative server's namedb: owner nodes indexed by name, RRsets
// indexed by type within each owner, and a stable canonical-order
// traversal (domain_next) that the diff engine walks against the spool.
//
// It is intentionally small — a real server's namedb additionally
// handles wildcards, DNSSEC chaining and delegation bookkeeping, none
// of which the differ needs.
package zone

import (
	"fmt"
	"sync"

	"github.com/miekg/dns"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/twotwotwo/sorts"

	"github.com/jschlyter/ixfrdiff/dnsname"
)

// RRset is the set of RRs at a given (owner, type, class) triple. Order
// inside an RRset is not semantically significant.
type RRset struct {
	Name   string
	RRtype uint16
	RRs    []dns.RR
}

// rrTypeStore indexes the RRsets held at one owner name by RR type: a
// small concurrent map keyed on the 16-bit type, mirroring the
// teacher's per-owner rrtype index, so owner data can be populated
// incrementally while a zone is loaded. It is the one place in this
// package that has to reconcile the diff engine's two ways of asking
// for an rrset: Get's ok=false for "this type isn't here at all" (the
// per-domain merge in diff.diffDomain uses this to decide whole-rrset
// delete vs per-RR diff), versus GetOnlyRRSet's bare value for the
// walk over Keys(), where presence is already established and asking
// for ok again would just be ceremony.
type rrTypeStore struct {
	data cmap.ConcurrentMap[uint16, RRset]
}

func newRRTypeStore() *rrTypeStore {
	return &rrTypeStore{
		data: cmap.NewWithCustomShardingFunction[uint16, RRset](func(key uint16) uint32 {
			return uint32(key)
		}),
	}
}

func (s *rrTypeStore) Get(rrtype uint16) (RRset, bool) {
	return s.data.Get(rrtype)
}

// GetOnlyRRSet fetches an rrtype already known present, e.g. while
// ranging over Keys(); the zero value it falls back to on a race
// against a concurrent Delete is never observed by any caller in this
// codebase, all of which hold the rrtype from a just-taken Keys()
// snapshot.
func (s *rrTypeStore) GetOnlyRRSet(rrtype uint16) RRset {
	rrset, _ := s.data.Get(rrtype)
	return rrset
}

func (s *rrTypeStore) Set(rrtype uint16, rrset RRset) {
	s.data.Set(rrtype, rrset)
}

func (s *rrTypeStore) Delete(rrtype uint16) {
	s.data.Remove(rrtype)
}

func (s *rrTypeStore) Count() int {
	return s.data.Count()
}

func (s *rrTypeStore) Keys() []uint16 {
	return s.data.Keys()
}

// OwnerData is a named node in the zone tree, carrying zero or more
// RRsets (indexed by type).
type OwnerData struct {
	Name    string
	RRtypes *rrTypeStore
}

// Owners is a canonically-ordered slice of OwnerData, frozen by
// ComputeIndices after a bulk load.
type Owners []OwnerData

func (o Owners) Len() int      { return len(o) }
func (o Owners) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o Owners) Less(i, j int) bool {
	ni, _ := dnsname.FromString(o[i].Name)
	nj, _ := dnsname.FromString(o[j].Name)
	return dnsname.Compare(ni, nj) < 0
}

// ZoneData is the root of one zone, rooted at ZoneName (the apex).
type ZoneData struct {
	mu sync.Mutex

	ZoneName string
	ApexLen  int

	// Data accumulates owners while the zone is being built; ComputeIndices
	// freezes it into the sorted Owners slice used for traversal.
	Data cmap.ConcurrentMap[string, OwnerData]

	Owners     Owners
	OwnerIndex cmap.ConcurrentMap[string, int]

	CurrentSerial uint32
	Ready         bool
}

// New creates an empty, writable ZoneData for apex.
func New(apex string) *ZoneData {
	return &ZoneData{
		ZoneName: dns.Fqdn(apex),
		Data:     cmap.New[OwnerData](),
	}
}

// AddRR inserts rr into the zone, merging it into the RRset at its
// owner name and type. AddRR must not be called after ComputeIndices.
func (zd *ZoneData) AddRR(rr dns.RR) error {
	if rr == nil {
		return fmt.Errorf("zone: AddRR: nil RR")
	}
	name := dns.Fqdn(rr.Header().Name)
	if !dnsNameIsSubdomain(name, zd.ZoneName) {
		return fmt.Errorf("zone: AddRR: owner %q is not in zone %q", name, zd.ZoneName)
	}

	zd.mu.Lock()
	defer zd.mu.Unlock()

	od, ok := zd.Data.Get(name)
	if !ok {
		od = OwnerData{Name: name, RRtypes: newRRTypeStore()}
	}

	rrtype := rr.Header().Rrtype
	rrset, ok := od.RRtypes.Get(rrtype)
	if !ok {
		rrset = RRset{Name: name, RRtype: rrtype}
	}
	rrset.RRs = append(rrset.RRs, rr)
	od.RRtypes.Set(rrtype, rrset)

	zd.Data.Set(name, od)

	if rrtype == dns.TypeSOA {
		if soa, ok := rr.(*dns.SOA); ok {
			zd.CurrentSerial = soa.Serial
		}
	}
	return nil
}

func dnsNameIsSubdomain(child, apex string) bool {
	c, err1 := dnsname.FromString(child)
	a, err2 := dnsname.FromString(apex)
	if err1 != nil || err2 != nil {
		return false
	}
	return dnsname.IsSubdomain(c, a)
}

// ComputeIndices freezes the zone's owners into canonical DNS name order
// and builds the name->index lookup. It mirrors the teacher's
// ComputeIndices/quickSort pattern, but sorts on DNS canonical order
// (dnsname.Compare) rather than a plain string compare, since the
// ordering contract here must match the spool writer's traversal
// exactly (spec §4.3.1).
func (zd *ZoneData) ComputeIndices() {
	zd.mu.Lock()
	defer zd.mu.Unlock()

	zd.Owners = zd.Owners[:0]
	for _, key := range zd.Data.Keys() {
		v, _ := zd.Data.Get(key)
		zd.Owners = append(zd.Owners, v)
	}

	sorts.Quicksort(zd.Owners)

	zd.OwnerIndex = cmap.New[int]()
	for i, od := range zd.Owners {
		zd.OwnerIndex.Set(od.Name, i)
	}
	apexName, err := dnsname.FromString(zd.ZoneName)
	if err == nil {
		zd.ApexLen = apexName.NumLabels()
	}
	zd.Ready = true
}

// GetOwner returns the OwnerData at qname, if any.
func (zd *ZoneData) GetOwner(qname string) (*OwnerData, bool) {
	idx, ok := zd.OwnerIndex.Get(dns.Fqdn(qname))
	if !ok {
		return nil, false
	}
	od := zd.Owners[idx]
	return &od, true
}

// GetRRset returns the RRset at (qname, rrtype) restricted to this zone.
func (zd *ZoneData) GetRRset(qname string, rrtype uint16) (*RRset, bool) {
	od, ok := zd.GetOwner(qname)
	if !ok {
		return nil, false
	}
	rrset, ok := od.RRtypes.Get(rrtype)
	if !ok {
		return nil, false
	}
	return &rrset, true
}

// Walker yields every in-zone domain in canonical traversal order,
// i.e. domain_next restricted to the apex's subtree, skipping any
// owner that (after a partial load) ended up with zero RRsets.
type Walker struct {
	zd  *ZoneData
	pos int
}

// NewWalker returns a walker positioned before the first owner.
// ComputeIndices must have been called first.
func (zd *ZoneData) NewWalker() *Walker {
	return &Walker{zd: zd, pos: 0}
}

// Next returns the next in-zone owner, or ok=false at the end of the
// zone.
func (w *Walker) Next() (OwnerData, bool) {
	for w.pos < len(w.zd.Owners) {
		od := w.zd.Owners[w.pos]
		w.pos++
		if od.RRtypes.Count() == 0 {
			continue
		}
		apex, err := dnsname.FromString(w.zd.ZoneName)
		if err != nil {
			continue
		}
		owner, err := dnsname.FromString(od.Name)
		if err != nil {
			continue
		}
		if !dnsname.IsSubdomain(owner, apex) {
			continue
		}
		return od, true
	}
	return OwnerData{}, false
}
