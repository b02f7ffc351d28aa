package spool

import (
	"path/filepath"
	"testing"

	"github.com/miekg/dns"

	"github.com/jschlyter/ixfrdiff/dnsname"
	"github.com/jschlyter/ixfrdiff/zone"
)

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", s, err)
	}
	return rr
}

func buildZone(t *testing.T) *zone.ZoneData {
	t.Helper()
	zd := zone.New("example.com.")
	rrs := []string{
		"example.com. 3600 IN SOA ns1.example.com. hostmaster.example.com. 100 7200 3600 1209600 3600",
		"example.com. 3600 IN NS ns1.example.com.",
		"a.example.com. 3600 IN A 10.0.0.1",
		"a.example.com. 3600 IN A 10.0.0.2",
		"mail.example.com. 3600 IN MX 10 a.example.com.",
	}
	for _, s := range rrs {
		if err := zd.AddRR(mustRR(t, s)); err != nil {
			t.Fatalf("AddRR: %v", err)
		}
	}
	zd.ComputeIndices()
	return zd
}

func TestWriteReadRoundTrip(t *testing.T) {
	zd := buildZone(t)
	path := filepath.Join(t.TempDir(), "test.spool")

	if err := WriteZone(zd, path, 100); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	apex, _ := dnsname.FromString("example.com.")
	serial, err := r.ReadHeader(apex, 100)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if serial != 100 {
		t.Fatalf("got serial %d, want 100", serial)
	}

	it := NewIterator(r)
	var gotOwners []string
	var gotRRCount int
	for {
		if err := it.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if it.Eof() {
			break
		}
		gotOwners = append(gotOwners, it.Name().String())
		for it.RRSetsRemaining() > 0 {
			set, err := it.ReadRRSet()
			if err != nil {
				t.Fatalf("ReadRRSet: %v", err)
			}
			gotRRCount += len(set.RRs)
		}
		if err := it.MarkProcessed(); err != nil {
			t.Fatalf("MarkProcessed: %v", err)
		}
	}

	wantOwners := []string{"example.com.", "a.example.com.", "mail.example.com."}
	if len(gotOwners) != len(wantOwners) {
		t.Fatalf("got owners %v, want %v", gotOwners, wantOwners)
	}
	for i := range wantOwners {
		if gotOwners[i] != wantOwners[i] {
			t.Errorf("position %d: got %q want %q", i, gotOwners[i], wantOwners[i])
		}
	}
	if gotRRCount != 5 {
		t.Errorf("got %d total RRs, want 5", gotRRCount)
	}
}

func TestReadHeaderStaleSnapshot(t *testing.T) {
	zd := buildZone(t)
	path := filepath.Join(t.TempDir(), "test.spool")
	if err := WriteZone(zd, path, 100); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	apex, _ := dnsname.FromString("example.com.")
	if _, err := r.ReadHeader(apex, 99); err == nil {
		t.Fatal("expected stale_snapshot error on serial mismatch")
	}
}

func TestReadHeaderWrongApex(t *testing.T) {
	zd := buildZone(t)
	path := filepath.Join(t.TempDir(), "test.spool")
	if err := WriteZone(zd, path, 100); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	wrongApex, _ := dnsname.FromString("other.com.")
	if _, err := r.ReadHeader(wrongApex, 100); err == nil {
		t.Fatal("expected stale_snapshot error on apex mismatch")
	}
}

func TestTruncatedFileIsMalformed(t *testing.T) {
	zd := buildZone(t)
	path := filepath.Join(t.TempDir(), "test.spool")
	if err := WriteZone(zd, path, 100); err != nil {
		t.Fatalf("WriteZone: %v", err)
	}

	full, err := readAll(path)
	if err != nil {
		t.Fatalf("readAll: %v", err)
	}
	truncPath := filepath.Join(t.TempDir(), "trunc.spool")
	if err := writeAll(truncPath, full[:len(full)-3]); err != nil {
		t.Fatalf("writeAll: %v", err)
	}

	r, err := Open(truncPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	apex, _ := dnsname.FromString("example.com.")
	if _, err := r.ReadHeader(apex, 100); err != nil {
		t.Fatalf("ReadHeader should still succeed on a file truncated at the tail: %v", err)
	}
	it := NewIterator(r)
	var failed bool
	for i := 0; i < 10; i++ {
		if err := it.Advance(); err != nil {
			failed = true
			break
		}
		if it.Eof() {
			break
		}
		for it.RRSetsRemaining() > 0 {
			if _, err := it.ReadRRSet(); err != nil {
				failed = true
				break
			}
		}
		if failed {
			break
		}
		_ = it.MarkProcessed()
	}
	if !failed {
		t.Fatal("expected a malformed_spool error reading a truncated file")
	}
}
