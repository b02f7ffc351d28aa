// Package diff implements the merge-join diff engine: an ordered
// comparison of a streamed-from-spool old zone against a live new zone,
// emitting per-RR adds and deletes in a single linear pass (spec §4.3).
package diff

import (
	"github.com/jschlyter/ixfrdiff/rdata"
)

// Sink is the ixfr_store collaborator contract (spec §6.2). The
// asymmetry between AddRR and DelRRUncompressed is deliberate: adds
// come from the live zone and know their atom layout, deletes come
// from the spool as opaque canonical bytes.
type Sink interface {
	AddRR(owner string, rrtype, class uint16, ttl uint32, atoms []rdata.Atom) error
	DelRRUncompressed(ownerWire []byte, rrtype, class uint16, ttl uint32, rdataBytes []byte) error
}
