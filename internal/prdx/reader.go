package prdx

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/logging"
)

// ReadFile loads a PRDX file into an arena whose buffers alias the file
// image: memory-mapped where the platform supports it, otherwise a single
// aligned read buffer. Either way no per-value parsing occurs. The image
// is released together with the arena.
func ReadFile(mem memory.Allocator, path string) (*arena.Arena, error) {
	const op = "ReadPRDX"

	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}
	size := info.Size()
	if size < headerSize+checksumLen {
		return nil, errors.NewCorruptFileError(op, "file too short")
	}

	image, cleanup, err := mapFile(mem, f, size)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	a, err := readImage(mem, image)
	if err != nil {
		cleanup()
		return nil, err
	}
	a.OnRelease(cleanup)
	return a, nil
}

// Read loads a PRDX stream. Unlike ReadFile the bytes are copied into an
// aligned buffer first, since a generic reader cannot be mapped.
func Read(mem memory.Allocator, r io.Reader) (*arena.Arena, error) {
	const op = "ReadPRDX"

	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	image, cleanup := alignedCopy(mem, data)
	a, err := readImage(mem, image)
	if err != nil {
		cleanup()
		return nil, err
	}
	a.OnRelease(cleanup)
	return a, nil
}

// readImage validates the image and builds columns whose buffers point
// directly at offsets within it.
func readImage(mem memory.Allocator, image []byte) (*arena.Arena, error) {
	const op = "ReadPRDX"
	start := time.Now()
	le := binary.LittleEndian

	if len(image) < headerSize+checksumLen {
		return nil, errors.NewCorruptFileError(op, "file too short")
	}
	if !bytes.Equal(image[0:4], magic[:]) {
		return nil, errors.NewFormatError(op, "bad magic")
	}
	if v := le.Uint32(image[4:8]); v != Version {
		return nil, errors.NewFormatError(op, "unsupported format version")
	}

	rows := le.Uint64(image[8:16])
	cols := le.Uint32(image[16:20])
	dirLen := le.Uint32(image[20:24])

	dirEnd := uint64(headerSize) + uint64(dirLen)
	dataStart := alignUp(dirEnd)
	if dataStart+checksumLen > uint64(len(image)) {
		return nil, errors.NewCorruptFileError(op, "directory extends past end of file")
	}

	data := image[dataStart : uint64(len(image))-checksumLen]
	wantSum := le.Uint64(image[uint64(len(image))-checksumLen:])
	if xxhash.Sum64(data) != wantSum {
		return nil, errors.NewCorruptFileError(op, "data section checksum mismatch")
	}

	entries := make([]dirEntry, 0, cols)
	dir := image[headerSize:dirEnd]
	for i := uint32(0); i < cols; i++ {
		e, n, ok := decodeEntry(dir)
		if !ok {
			return nil, errors.NewCorruptFileError(op, "truncated column directory")
		}
		dir = dir[n:]
		entries = append(entries, e)
	}
	if len(dir) != 0 {
		return nil, errors.NewCorruptFileError(op, "trailing bytes in column directory")
	}

	a := arena.New(mem)
	for _, e := range entries {
		col, err := columnFromEntry(&e, data, int(rows))
		if err != nil {
			a.Release()
			return nil, err
		}
		if err := a.AppendColumn(col); err != nil {
			col.Release()
			a.Release()
			return nil, err
		}
	}

	logging.Named("prdx").Debug("file loaded",
		zap.Uint64("rows", rows),
		zap.Uint32("columns", cols),
		zap.Duration("elapsed", time.Since(start)))

	return a, nil
}

func columnFromEntry(e *dirEntry, data []byte, rows int) (*arena.Column, error) {
	const op = "ReadPRDX"

	if !e.dtype.Valid() {
		return nil, errors.NewCorruptFileError(op, "unknown dtype tag for column '"+e.name+"'")
	}
	if e.nulls > uint64(rows) {
		return nil, errors.NewCorruptFileError(op, "null count exceeds row count for column '"+e.name+"'")
	}

	slice := func(ref bufRef) ([]byte, bool) {
		if ref.off+ref.len > uint64(len(data)) {
			return nil, false
		}
		return data[ref.off : ref.off+ref.len], true
	}

	validityBytes, ok := slice(e.validity)
	if !ok || uint64(len(validityBytes)) < uint64(bitutil.BytesForBits(int64(rows))) {
		return nil, errors.NewCorruptFileError(op, "validity bitmap out of bounds for column '"+e.name+"'")
	}

	dataSlice, ok := slice(e.data)
	if !ok {
		return nil, errors.NewCorruptFileError(op, "data buffer out of bounds for column '"+e.name+"'")
	}

	var offsetsBuf *memory.Buffer
	switch e.dtype {
	case arena.Int64, arena.Float64:
		if int(e.data.len) < rows*e.dtype.FixedWidth() {
			return nil, errors.NewCorruptFileError(op, "data buffer too short for column '"+e.name+"'")
		}
	case arena.Utf8:
		offsetsSlice, okOff := slice(e.offsets)
		if !okOff || (rows > 0 && int(e.offsets.len) < (rows+1)*4) {
			return nil, errors.NewCorruptFileError(op, "offsets buffer out of bounds for column '"+e.name+"'")
		}
		// The offsets index into the value bytes. The checksum only proves
		// the image was written intact, not that the offsets are sane, and
		// a bad offset would otherwise surface as an out-of-range slice on
		// first access. Reject it here instead.
		if rows > 0 {
			offs := arrow.Int32Traits.CastFromBytes(offsetsSlice)[: rows+1 : rows+1]
			if offs[0] < 0 || uint64(offs[rows]) > e.data.len {
				return nil, errors.NewCorruptFileError(op, "string offsets out of range for column '"+e.name+"'")
			}
			for i := 0; i < rows; i++ {
				if offs[i] > offs[i+1] {
					return nil, errors.NewCorruptFileError(op, "non-monotonic string offsets for column '"+e.name+"'")
				}
			}
		}
		offsetsBuf = memory.NewBufferBytes(offsetsSlice)
	}

	return arena.WrapColumn(
		e.name,
		e.dtype,
		rows,
		int(e.nulls),
		memory.NewBufferBytes(dataSlice),
		offsetsBuf,
		memory.NewBufferBytes(validityBytes),
	), nil
}

// alignedCopy copies data into an allocator-aligned buffer so aliased
// column buffers keep the kernel alignment guarantee.
func alignedCopy(mem memory.Allocator, data []byte) ([]byte, func()) {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(len(data))
	copy(buf.Bytes(), data)
	return buf.Bytes()[:len(data)], buf.Release
}
