//go:build unix

package serialization

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the whole file read-only with sequential read-ahead.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	data, err := unix.Mmap(
		int(f.Fd()), //nolint:gosec // G115: file descriptor fits in int
		0,
		int(size), //nolint:gosec // G115: size checked against FixedHeaderSize by caller
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, err
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, nil
}

func munmapFile(data []byte) error {
	return unix.Munmap(data)
}
