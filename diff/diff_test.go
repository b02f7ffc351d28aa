package diff

import (
	"os"
	"testing"

	"github.com/miekg/dns"

	"github.com/jschlyter/ixfrdiff/dnsname"
	"github.com/jschlyter/ixfrdiff/rdata"
	"github.com/jschlyter/ixfrdiff/spool"
	"github.com/jschlyter/ixfrdiff/zone"
)

// fakeSink is a minimal in-memory diff.Sink used to assert what a Walk
// emits without depending on the ixfrstore package.
type fakeSink struct {
	adds    []string
	deletes []string
}

func (f *fakeSink) AddRR(owner string, rrtype, class uint16, ttl uint32, atoms []rdata.Atom) error {
	var rdbuf []byte
	for _, a := range atoms {
		rdbuf = append(rdbuf, a.Bytes...)
	}
	ownerWire, err := dnsname.FromString(owner)
	if err != nil {
		return err
	}
	rr, err := rdata.DecodeRR(ownerWire, rrtype, class, ttl, rdbuf)
	if err != nil {
		return err
	}
	f.adds = append(f.adds, rr.String())
	return nil
}

func (f *fakeSink) DelRRUncompressed(ownerWire []byte, rrtype, class uint16, ttl uint32, rdataBytes []byte) error {
	rr, err := rdata.DecodeRR(ownerWire, rrtype, class, ttl, rdataBytes)
	if err != nil {
		return err
	}
	f.deletes = append(f.deletes, rr.String())
	return nil
}

func buildZone(t *testing.T, apex string, records []string) *zone.ZoneData {
	t.Helper()
	zd := zone.New(apex)
	for _, rec := range records {
		rr, err := dns.NewRR(rec)
		if err != nil {
			t.Fatalf("dns.NewRR(%q): %v", rec, err)
		}
		if err := zd.AddRR(rr); err != nil {
			t.Fatalf("AddRR(%q): %v", rec, err)
		}
	}
	zd.ComputeIndices()
	return zd
}

func spoolIterator(t *testing.T, zd *zone.ZoneData, serial uint32) (*spool.Iterator, func()) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "spool-*.bin")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()

	if err := spool.WriteZone(zd, path, serial); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}
	r, err := spool.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	apex, err := dnsname.FromString(zd.ZoneName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadHeader(apex, serial); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	return spool.NewIterator(r), func() { r.Close() }
}

const apex = "example.com."

// S1: a record present only in the new zone is emitted as an add.
func TestWalkInsert(t *testing.T) {
	oldZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 100 7200 3600 1209600 3600",
	})
	newZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 101 7200 3600 1209600 3600",
		"www." + apex + " 3600 IN A 10.0.0.1",
	})

	it, closeFn := spoolIterator(t, oldZone, 100)
	defer closeFn()

	sink := &fakeSink{}
	if err := Walk(sink, it, newZone); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sink.adds) != 2 { // new SOA + new A record
		t.Fatalf("got %d adds, want 2: %v", len(sink.adds), sink.adds)
	}
	if len(sink.deletes) != 1 { // old SOA
		t.Fatalf("got %d deletes, want 1: %v", len(sink.deletes), sink.deletes)
	}
}

// S2: a record present only in the old zone is emitted as a delete.
func TestWalkDelete(t *testing.T) {
	oldZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 100 7200 3600 1209600 3600",
		"www." + apex + " 3600 IN A 10.0.0.1",
	})
	newZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 101 7200 3600 1209600 3600",
	})

	it, closeFn := spoolIterator(t, oldZone, 100)
	defer closeFn()

	sink := &fakeSink{}
	if err := Walk(sink, it, newZone); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sink.adds) != 1 {
		t.Fatalf("got %d adds, want 1: %v", len(sink.adds), sink.adds)
	}
	if len(sink.deletes) != 2 {
		t.Fatalf("got %d deletes, want 2: %v", len(sink.deletes), sink.deletes)
	}
}

// S3: a TTL-only change on an otherwise identical RR is a delete+add pair.
func TestWalkTTLChange(t *testing.T) {
	oldZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 100 7200 3600 1209600 3600",
		"www." + apex + " 3600 IN A 10.0.0.1",
	})
	newZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 101 7200 3600 1209600 3600",
		"www." + apex + " 7200 IN A 10.0.0.1",
	})

	it, closeFn := spoolIterator(t, oldZone, 100)
	defer closeFn()

	sink := &fakeSink{}
	if err := Walk(sink, it, newZone); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sink.adds) != 2 {
		t.Fatalf("got %d adds, want 2: %v", len(sink.adds), sink.adds)
	}
	if len(sink.deletes) != 2 {
		t.Fatalf("got %d deletes, want 2: %v", len(sink.deletes), sink.deletes)
	}
}

// S4: replacing an rrset wholesale (different rdata, same owner/type).
func TestWalkReplaceRRset(t *testing.T) {
	oldZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 100 7200 3600 1209600 3600",
		"www." + apex + " 3600 IN A 10.0.0.1",
		"www." + apex + " 3600 IN A 10.0.0.2",
	})
	newZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 101 7200 3600 1209600 3600",
		"www." + apex + " 3600 IN A 10.0.0.3",
	})

	it, closeFn := spoolIterator(t, oldZone, 100)
	defer closeFn()

	sink := &fakeSink{}
	if err := Walk(sink, it, newZone); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sink.adds) != 2 { // new SOA + new A
		t.Fatalf("got %d adds, want 2: %v", len(sink.adds), sink.adds)
	}
	if len(sink.deletes) != 3 { // old SOA + both old As
		t.Fatalf("got %d deletes, want 3: %v", len(sink.deletes), sink.deletes)
	}
}

// S5: a whole new domain appearing between two existing spooled domains.
func TestWalkWholeDomainAdd(t *testing.T) {
	oldZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 100 7200 3600 1209600 3600",
		"a." + apex + " 3600 IN A 10.0.0.1",
		"z." + apex + " 3600 IN A 10.0.0.2",
	})
	newZone := buildZone(t, apex, []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 101 7200 3600 1209600 3600",
		"a." + apex + " 3600 IN A 10.0.0.1",
		"m." + apex + " 3600 IN A 10.0.0.9",
		"z." + apex + " 3600 IN A 10.0.0.2",
	})

	it, closeFn := spoolIterator(t, oldZone, 100)
	defer closeFn()

	sink := &fakeSink{}
	if err := Walk(sink, it, newZone); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	// new SOA + the whole new "m" domain
	if len(sink.adds) != 2 {
		t.Fatalf("got %d adds, want 2: %v", len(sink.adds), sink.adds)
	}
	if len(sink.deletes) != 1 { // old SOA only; a and z are unchanged
		t.Fatalf("got %d deletes, want 1: %v", len(sink.deletes), sink.deletes)
	}
}

func TestWalkNoChanges(t *testing.T) {
	records := []string{
		apex + " 3600 IN SOA ns1." + apex + " hostmaster." + apex + " 100 7200 3600 1209600 3600",
		"www." + apex + " 3600 IN A 10.0.0.1",
	}
	oldZone := buildZone(t, apex, records)
	newZone := buildZone(t, apex, records)

	it, closeFn := spoolIterator(t, oldZone, 100)
	defer closeFn()

	sink := &fakeSink{}
	if err := Walk(sink, it, newZone); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sink.adds) != 0 || len(sink.deletes) != 0 {
		t.Fatalf("got %d adds / %d deletes, want 0/0: adds=%v deletes=%v", len(sink.adds), len(sink.deletes), sink.adds, sink.deletes)
	}
}
