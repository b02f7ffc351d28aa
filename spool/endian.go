package spool

import "encoding/binary"

// hostOrder is the machine's native byte order. The spool file format is
// deliberately host-endian and process-local (spec §4.1 "Endianness"):
// it is a transient scratch file, never transmitted or read back on a
// different machine, so there is no portability requirement to buy back
// by paying a byte-swap on every integer.
var hostOrder binary.ByteOrder = binary.NativeEndian
