package zone

import (
	"testing"

	"github.com/miekg/dns"
)

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", s, err)
	}
	return rr
}

func buildZone(t *testing.T) *ZoneData {
	t.Helper()
	zd := New("example.com.")
	rrs := []string{
		"example.com. 3600 IN SOA ns1.example.com. hostmaster.example.com. 100 7200 3600 1209600 3600",
		"example.com. 3600 IN NS ns1.example.com.",
		"a.example.com. 3600 IN A 10.0.0.1",
		"sub.example.com. 3600 IN A 10.0.0.2",
		"zzz.example.com. 3600 IN A 10.0.0.3",
	}
	for _, s := range rrs {
		if err := zd.AddRR(mustRR(t, s)); err != nil {
			t.Fatalf("AddRR(%q): %v", s, err)
		}
	}
	zd.ComputeIndices()
	return zd
}

func TestWalkerOrderIsCanonical(t *testing.T) {
	zd := buildZone(t)
	w := zd.NewWalker()

	var names []string
	for {
		od, ok := w.Next()
		if !ok {
			break
		}
		names = append(names, od.Name)
	}

	want := []string{"example.com.", "a.example.com.", "sub.example.com.", "zzz.example.com."}
	if len(names) != len(want) {
		t.Fatalf("got %v owners, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: got %q want %q (full: %v)", i, names[i], want[i], names)
		}
	}
}

func TestAddRRRejectsOutOfZone(t *testing.T) {
	zd := New("example.com.")
	err := zd.AddRR(mustRR(t, "www.example.org. 3600 IN A 10.0.0.1"))
	if err == nil {
		t.Fatal("expected error adding out-of-zone RR")
	}
}

func TestGetRRset(t *testing.T) {
	zd := buildZone(t)
	rrset, ok := zd.GetRRset("a.example.com.", dns.TypeA)
	if !ok {
		t.Fatal("expected rrset for a.example.com./A")
	}
	if len(rrset.RRs) != 1 {
		t.Fatalf("expected 1 RR, got %d", len(rrset.RRs))
	}
	if _, ok := zd.GetRRset("a.example.com.", dns.TypeAAAA); ok {
		t.Fatal("did not expect AAAA rrset")
	}
}
