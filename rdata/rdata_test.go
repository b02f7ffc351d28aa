package rdata

import (
	"bytes"
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

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"a.example.com. 3600 IN A 10.0.0.1",
		"aaaa.example.com. 3600 IN AAAA 2001:db8::1",
		"example.com. 3600 IN NS ns1.example.com.",
		"www.example.com. 3600 IN CNAME example.com.",
		"example.com. 3600 IN MX 10 mx1.example.com.",
		"example.com. 3600 IN SOA ns1.example.com. hostmaster.example.com. 100 7200 3600 1209600 3600",
		`txt.example.com. 3600 IN TXT "hello world"`,
		"_sip._tcp.example.com. 3600 IN SRV 10 20 5060 sip.example.com.",
	}
	for _, s := range cases {
		rr := mustRR(t, s)
		enc, err := Encode(rr)
		if err != nil {
			t.Fatalf("Encode(%q): %v", s, err)
		}
		ownerWire, _, err := func() ([]byte, int, error) {
			buf := make([]byte, 255)
			off, err := dns.PackDomainName(rr.Header().Name, buf, 0, nil, false)
			return buf[:off], off, err
		}()
		if err != nil {
			t.Fatalf("pack owner name: %v", err)
		}

		decoded, err := DecodeRR(ownerWire, rr.Header().Rrtype, rr.Header().Class, rr.Header().Ttl, enc)
		if err != nil {
			t.Fatalf("DecodeRR(%q): %v", s, err)
		}
		if decoded.String() != rr.String() {
			t.Errorf("round trip mismatch: got %q want %q", decoded.String(), rr.String())
		}

		enc2, err := Encode(decoded)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(enc, enc2) {
			t.Errorf("canonical encoding not stable across round trip for %q", s)
		}
	}
}

func TestAtomsConcatenateToEncode(t *testing.T) {
	rr := mustRR(t, "example.com. 3600 IN MX 10 mx1.example.com.")
	atoms, err := Atoms(rr)
	if err != nil {
		t.Fatalf("Atoms: %v", err)
	}
	if len(atoms) != 2 {
		t.Fatalf("expected 2 atoms for MX, got %d", len(atoms))
	}
	if atoms[0].IsName {
		t.Error("preference atom should not be a name atom")
	}
	if !atoms[1].IsName {
		t.Error("exchange atom should be a name atom")
	}

	var concat []byte
	for _, a := range atoms {
		concat = append(concat, a.Bytes...)
	}
	enc, err := Encode(rr)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(concat, enc) {
		t.Error("atom concatenation must equal Encode output")
	}
}

func TestUnknownTypeFallback(t *testing.T) {
	rr := mustRR(t, "example.com. 3600 IN CAA 0 issue \"letsencrypt.org\"")
	atoms, err := Atoms(rr)
	if err != nil {
		t.Fatalf("Atoms(CAA): %v", err)
	}
	if len(atoms) != 1 || atoms[0].IsName {
		t.Fatalf("expected a single raw fallback atom for CAA, got %+v", atoms)
	}
}
