//go:build unix

package prdx

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sys/unix"
)

// mapFile maps the file with a private copy-on-write mapping: loaded
// columns alias the image directly, and the mutation kernels may write
// through them without touching the file on disk. The mapping is
// page-aligned, so the 64-byte alignment of buffers inside the data
// section carries over to memory. Falls back to an aligned read when
// mmap is unavailable (e.g. some filesystems).
func mapFile(mem memory.Allocator, f *os.File, size int64) ([]byte, func(), error) {
	if size == 0 {
		return nil, func() {}, nil
	}

	image, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		return readFallback(mem, f, size)
	}

	cleanup := func() {
		_ = unix.Munmap(image)
	}
	return image, cleanup, nil
}
