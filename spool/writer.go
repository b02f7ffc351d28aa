// Package spool implements the on-disk snapshot format used to capture
// a zone before it is reloaded with new content (spec §6.1), plus the
// streaming reader and merge-join cursor (dname iterator) that read it
// back one domain at a time.
package spool

import (
	"bufio"
	"fmt"
	"os"

	"github.com/miekg/dns"

	"github.com/jschlyter/ixfrdiff/dnsname"
	"github.com/jschlyter/ixfrdiff/rdata"
	"github.com/jschlyter/ixfrdiff/zone"
)

// WriteZone serializes a complete snapshot of zd to path, tagged with
// serial, in the spool format of spec §6.1. On any write failure the
// file is left in an undefined state; the caller must discard it
// (session.Manager.Start returns the error without creating a session,
// so the file is never read back).
func WriteZone(zd *zone.ZoneData, path string, serial uint32) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("spool: opening %q for write: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("spool: closing %q: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)

	apex, aerr := dnsname.FromString(zd.ZoneName)
	if aerr != nil {
		return fmt.Errorf("spool: invalid apex name %q: %w", zd.ZoneName, aerr)
	}
	if err := writeName(w, apex); err != nil {
		return err
	}
	if err := writeUint32(w, serial); err != nil {
		return err
	}

	walker := zd.NewWalker()
	for {
		od, ok := walker.Next()
		if !ok {
			break
		}

		rrtypes := od.RRtypes.Keys()
		if len(rrtypes) == 0 {
			continue
		}

		ownerName, nerr := dnsname.FromString(od.Name)
		if nerr != nil {
			return fmt.Errorf("spool: invalid owner name %q: %w", od.Name, nerr)
		}
		if err := writeName(w, ownerName); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(rrtypes))); err != nil {
			return err
		}

		for _, rrtype := range rrtypes {
			rrset, ok := od.RRtypes.Get(rrtype)
			if !ok {
				continue
			}
			if len(rrset.RRs) > rdata.MaxRdlen {
				return fmt.Errorf("spool: rrset %s/%d has %d RRs, exceeds 16-bit rr_count", od.Name, rrtype, len(rrset.RRs))
			}
			class := uint16(dns.ClassINET)
			if len(rrset.RRs) > 0 {
				class = rrset.RRs[0].Header().Class
			}
			if err := writeUint16(w, rrtype); err != nil {
				return err
			}
			if err := writeUint16(w, class); err != nil {
				return err
			}
			if err := writeUint16(w, uint16(len(rrset.RRs))); err != nil {
				return err
			}
			for _, rr := range rrset.RRs {
				enc, eerr := rdata.Encode(rr)
				if eerr != nil {
					return fmt.Errorf("spool: encoding rdata for %s: %w", rr.String(), eerr)
				}
				if len(enc) > rdata.MaxRdlen {
					return fmt.Errorf("spool: rdata for %s exceeds 65535 bytes", rr.String())
				}
				if err := writeUint32(w, rr.Header().Ttl); err != nil {
					return err
				}
				if err := writeUint16(w, uint16(len(enc))); err != nil {
					return err
				}
				if _, err := w.Write(enc); err != nil {
					return fmt.Errorf("spool: writing rdata: %w", err)
				}
			}
		}
	}

	// end-of-stream sentinel: a zero-length name.
	if err := writeUint16(w, 0); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("spool: flushing %q: %w", path, err)
	}
	return nil
}

func writeUint16(w *bufio.Writer, v uint16) error {
	var buf [2]byte
	hostOrder.PutUint16(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("spool: write u16: %w", err)
	}
	return nil
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	hostOrder.PutUint32(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("spool: write u32: %w", err)
	}
	return nil
}

func writeName(w *bufio.Writer, n dnsname.Name) error {
	if err := writeUint16(w, uint16(len(n))); err != nil {
		return err
	}
	if _, err := w.Write(n); err != nil {
		return fmt.Errorf("spool: write name: %w", err)
	}
	return nil
}
