package prdx

import (
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// readFallback loads the file into a single allocator-aligned buffer.
func readFallback(mem memory.Allocator, f *os.File, size int64) ([]byte, func(), error) {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(int(size))
	if _, err := io.ReadFull(f, buf.Bytes()[:size]); err != nil {
		buf.Release()
		return nil, nil, err
	}
	return buf.Bytes()[:size], buf.Release, nil
}
