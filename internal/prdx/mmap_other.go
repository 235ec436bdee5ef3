//go:build !unix

package prdx

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// mapFile reads the whole file into one aligned buffer on platforms
// without a usable mmap. Column buffers still alias that single image.
func mapFile(mem memory.Allocator, f *os.File, size int64) ([]byte, func(), error) {
	return readFallback(mem, f, size)
}
