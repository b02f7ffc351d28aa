// Package dnsname implements wire-format domain names and the canonical
// DNS name ordering used throughout the spool format and the diff engine.
package dnsname

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// MaxWireLength is the maximum length of a domain name in wire format,
// including the terminating root label.
const MaxWireLength = 255

var (
	ErrNameTooLong = errors.New("dnsname: name exceeds 255 octets")
	ErrShortRead   = errors.New("dnsname: short read while parsing wire name")
	ErrBadLabelLen = errors.New("dnsname: label length out of range")
)

// Name holds a domain name in uncompressed wire format: a sequence of
// length-prefixed labels terminated by the zero-length root label.
type Name []byte

// FromString builds an uncompressed wire-format Name from a presentation
// format domain name (e.g. "www.example.com.").
func FromString(s string) (Name, error) {
	buf := make([]byte, 255)
	off, err := dns.PackDomainName(dns.Fqdn(s), buf, 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("dnsname: FromString(%q): %w", s, err)
	}
	return Name(buf[:off]), nil
}

// ParseWire reads one length-prefixed domain name from buf starting at
// offset 0. It returns the parsed Name and the number of bytes consumed.
// A zero-length name (the bare root label) is legal and yields Name{0}.
func ParseWire(buf []byte) (Name, int, error) {
	var labels [][]byte
	i := 0
	for {
		if i >= len(buf) {
			return nil, 0, ErrShortRead
		}
		ll := int(buf[i])
		if ll > 63 {
			return nil, 0, ErrBadLabelLen
		}
		if ll == 0 {
			labels = append(labels, buf[i:i+1])
			i++
			break
		}
		if i+1+ll > len(buf) {
			return nil, 0, ErrShortRead
		}
		labels = append(labels, buf[i:i+1+ll])
		i += 1 + ll
		if i > MaxWireLength {
			return nil, 0, ErrNameTooLong
		}
	}
	if i > MaxWireLength {
		return nil, 0, ErrNameTooLong
	}
	out := make([]byte, i)
	copy(out, buf[:i])
	return Name(out), i, nil
}

// String renders n in presentation format.
func (n Name) String() string {
	s, _, err := dns.UnpackDomainName([]byte(n), 0)
	if err != nil {
		return "<invalid-name>"
	}
	return s
}

// labels splits n into its raw length-prefixed label slices, in wire
// order (leaf label first, root label last).
func (n Name) labels() [][]byte {
	var out [][]byte
	i := 0
	for i < len(n) {
		ll := int(n[i])
		out = append(out, n[i:i+1+ll])
		if ll == 0 {
			break
		}
		i += 1 + ll
	}
	return out
}

// Compare returns a total order over domain names matching DNS canonical
// order (RFC 4034 section 6.1): names are compared label by label starting
// from the root, case-insensitively; a name that is a strict prefix of
// another (in this root-first order) sorts first.
func Compare(a, b Name) int {
	al, bl := a.labels(), b.labels()
	// reverse so index 0 is the label closest to the root
	reverse(al)
	reverse(bl)
	for i := 0; i < len(al) && i < len(bl); i++ {
		if c := compareLabel(al[i], bl[i]); c != 0 {
			return c
		}
	}
	return len(al) - len(bl)
}

func reverse(s [][]byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// compareLabel compares two wire-format labels (length byte + content)
// case-insensitively, shorter-is-less when one is a prefix of the other.
func compareLabel(a, b []byte) int {
	la, lb := int(a[0]), int(b[0])
	ac, bc := a[1:1+la], b[1:1+lb]
	n := la
	if lb < n {
		n = lb
	}
	for i := 0; i < n; i++ {
		ca, cb := foldByte(ac[i]), foldByte(bc[i])
		if ca != cb {
			return int(ca) - int(cb)
		}
	}
	return la - lb
}

func foldByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// Equal reports whether a and b are the same name under canonical order.
func Equal(a, b Name) bool {
	return Compare(a, b) == 0
}

// IsSubdomain reports whether child is equal to or below apex in the
// domain tree, i.e. apex's labels are a suffix of child's labels.
func IsSubdomain(child, apex Name) bool {
	cl, al := child.labels(), apex.labels()
	if len(al) > len(cl) {
		return false
	}
	off := len(cl) - len(al)
	for i := range al {
		if compareLabel(cl[off+i], al[i]) != 0 {
			return false
		}
	}
	return true
}

// NumLabels returns the number of labels in n, including the root label.
func (n Name) NumLabels() int {
	return len(n.labels())
}

// StripTrailingDot is a small presentation-format convenience used by
// logging call sites; it never touches wire-format data.
func StripTrailingDot(s string) string {
	return strings.TrimSuffix(s, ".")
}
