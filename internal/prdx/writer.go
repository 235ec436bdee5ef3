package prdx

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/logging"
)

// WriteFile serializes the arena into a PRDX file at path. The write is
// all-or-nothing: a failure leaves no partial file behind.
func WriteFile(path string, a *arena.Arena) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewInternalError("WritePRDX", err)
	}

	if err := Write(f, a); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return errors.NewInternalError("WritePRDX", err)
	}
	return nil
}

// Write streams the arena to w: header, column directory, then every
// column's validity bitmap and raw buffers in directory order — a direct
// dump of arena contents plus metadata, followed by the data-section
// checksum.
func Write(w io.Writer, a *arena.Arena) error {
	const op = "WritePRDX"
	start := time.Now()

	entries, dataLen, err := buildDirectory(a)
	if err != nil {
		return err
	}

	dirLen := 0
	for i := range entries {
		dirLen += entries[i].encodedLen()
	}

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	var header [headerSize]byte
	copy(header[0:4], magic[:])
	le.PutUint32(header[4:8], Version)
	le.PutUint64(header[8:16], uint64(a.NumRows()))
	le.PutUint32(header[16:20], uint32(a.NumCols()))
	le.PutUint32(header[20:24], uint32(dirLen))
	if _, err := bw.Write(header[:]); err != nil {
		return errors.NewInternalError(op, err)
	}

	dirBuf := make([]byte, dirLen)
	n := 0
	for i := range entries {
		n += entries[i].encode(dirBuf[n:])
	}
	if _, err := bw.Write(dirBuf); err != nil {
		return errors.NewInternalError(op, err)
	}

	// The data section starts aligned so file offsets mirror the relative
	// offsets in the directory.
	if err := writePad(bw, int(alignUp(headerSize+uint64(dirLen))-(headerSize+uint64(dirLen)))); err != nil {
		return err
	}

	digest := xxhash.New()
	out := io.MultiWriter(bw, digest)

	var written uint64
	for i, name := range a.Names() {
		col, colErr := a.Column(name)
		if colErr != nil {
			return colErr
		}
		e := &entries[i]

		for _, part := range []struct {
			ref bufRef
			src []byte
		}{
			{e.validity, col.Validity.Bytes()},
			{e.offsets, offsetBytes(col)},
			{e.data, dataBytes(col)},
		} {
			if part.ref.len == 0 && part.src == nil {
				continue
			}
			if err := writePadTo(out, &written, part.ref.off); err != nil {
				return err
			}
			if _, err := out.Write(part.src[:part.ref.len]); err != nil {
				return errors.NewInternalError(op, err)
			}
			written += part.ref.len
		}
	}
	if err := writePadTo(out, &written, dataLen); err != nil {
		return err
	}

	var sum [checksumLen]byte
	le.PutUint64(sum[:], digest.Sum64())
	if _, err := bw.Write(sum[:]); err != nil {
		return errors.NewInternalError(op, err)
	}

	if err := bw.Flush(); err != nil {
		return errors.NewInternalError(op, err)
	}

	logging.Named("prdx").Debug("file written",
		zap.Int("rows", a.NumRows()),
		zap.Int("columns", a.NumCols()),
		zap.Uint64("data_bytes", dataLen),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

// buildDirectory lays out every buffer in the data section, assigning
// 64-byte aligned relative offsets in schema order.
func buildDirectory(a *arena.Arena) ([]dirEntry, uint64, error) {
	entries := make([]dirEntry, 0, a.NumCols())
	var cur uint64

	place := func(n uint64) bufRef {
		cur = alignUp(cur)
		ref := bufRef{off: cur, len: n}
		cur += n
		return ref
	}

	for _, name := range a.Names() {
		col, err := a.Column(name)
		if err != nil {
			return nil, 0, err
		}

		e := dirEntry{
			name:  name,
			dtype: col.DType,
			nulls: uint64(col.Nulls),
		}
		e.validity = place(uint64(bitutil.BytesForBits(int64(col.Length))))
		if col.DType == arena.Utf8 {
			e.offsets = place(uint64(len(offsetBytes(col))))
		}
		e.data = place(uint64(len(dataBytes(col))))
		entries = append(entries, e)
	}

	return entries, alignUp(cur), nil
}

func offsetBytes(col *arena.Column) []byte {
	if col.Offsets == nil || col.Offsets.Len() == 0 {
		return nil
	}
	return col.Offsets.Bytes()[:(col.Length+1)*4]
}

func dataBytes(col *arena.Column) []byte {
	switch col.DType {
	case arena.Utf8:
		if col.Length == 0 || offsetBytes(col) == nil {
			return nil
		}
		end := col.ValueOffsets()[col.Length]
		return col.Data.Bytes()[:end]
	default:
		return col.Data.Bytes()[:col.Length*col.DType.FixedWidth()]
	}
}

var padding [alignment]byte

func writePad(w io.Writer, n int) error {
	if n == 0 {
		return nil
	}
	if _, err := w.Write(padding[:n]); err != nil {
		return errors.NewInternalError("WritePRDX", err)
	}
	return nil
}

func writePadTo(w io.Writer, written *uint64, target uint64) error {
	if target < *written {
		return errors.NewInternalError("WritePRDX", nil)
	}
	if err := writePad(w, int(target-*written)); err != nil {
		return err
	}
	*written = target
	return nil
}
