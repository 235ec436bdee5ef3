// Package prdx implements the native binary persistence format.
//
// A PRDX file is a zero-parse dump of an arena: a fixed header, a column
// directory, and a data section holding every column's validity bitmap
// and raw buffers back to back, each aligned to 64 bytes — the same
// alignment the allocator gives in-memory buffers. Loading therefore
// needs no row-by-row parsing: the reader validates the header, walks the
// directory, and builds columns whose buffers alias the file image
// directly (memory-mapped where the platform allows, a single aligned
// read buffer otherwise).
//
// Layout, all values little-endian:
//
//	[0:4)   magic "PRDX"
//	[4:8)   format version (uint32)
//	[8:16)  row count (uint64)
//	[16:20) column count (uint32)
//	[20:24) directory byte length (uint32)
//	[24:..) directory, one entry per column in schema order
//	 ...    data section, 64-byte aligned buffers
//	[-8:)   xxhash64 checksum of the data section
//
// Directory entry:
//
//	name length (uint32), name bytes, dtype tag (uint8), null count
//	(uint64), then three (offset, length) uint64 pairs for the validity
//	bitmap, the Utf8 offsets buffer (zero pair for fixed-width types),
//	and the data buffer. Offsets are relative to the data section start.
package prdx

import (
	"encoding/binary"

	"github.com/pardox/pardox/internal/arena"
)

const (
	// Version is the current format version. Files written by any
	// implementation sharing this number are bit-compatible.
	Version uint32 = 1

	headerSize  = 24
	alignment   = 64
	checksumLen = 8

	maxNameLen = 1 << 20
)

var magic = [4]byte{'P', 'R', 'D', 'X'}

type dirEntry struct {
	name     string
	dtype    arena.DType
	nulls    uint64
	validity bufRef
	offsets  bufRef
	data     bufRef
}

type bufRef struct {
	off uint64
	len uint64
}

func (e *dirEntry) encodedLen() int {
	return 4 + len(e.name) + 1 + 8 + 6*8
}

func (e *dirEntry) encode(dst []byte) int {
	le := binary.LittleEndian
	n := 0
	le.PutUint32(dst[n:], uint32(len(e.name)))
	n += 4
	n += copy(dst[n:], e.name)
	dst[n] = byte(e.dtype)
	n++
	le.PutUint64(dst[n:], e.nulls)
	n += 8
	for _, ref := range []bufRef{e.validity, e.offsets, e.data} {
		le.PutUint64(dst[n:], ref.off)
		n += 8
		le.PutUint64(dst[n:], ref.len)
		n += 8
	}
	return n
}

// decodeEntry parses one directory entry, returning the bytes consumed.
// ok is false when the buffer is too short or the entry is inconsistent.
func decodeEntry(src []byte) (e dirEntry, n int, ok bool) {
	le := binary.LittleEndian
	if len(src) < 4 {
		return e, 0, false
	}
	nameLen := int(le.Uint32(src))
	if nameLen > maxNameLen || len(src) < 4+nameLen+1+8+6*8 {
		return e, 0, false
	}
	n = 4
	e.name = string(src[n : n+nameLen])
	n += nameLen
	e.dtype = arena.DType(src[n])
	n++
	e.nulls = le.Uint64(src[n:])
	n += 8
	for _, ref := range []*bufRef{&e.validity, &e.offsets, &e.data} {
		ref.off = le.Uint64(src[n:])
		n += 8
		ref.len = le.Uint64(src[n:])
		n += 8
	}
	return e, n, true
}

func alignUp(n uint64) uint64 {
	return (n + alignment - 1) &^ uint64(alignment-1)
}
