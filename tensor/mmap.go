//go:build !windows
// +build !windows

package tensor

import (
	"os"
	"syscall"
)

// mmapReader holds a read-only mapping of a whole file.
type mmapReader struct {
	data []byte
	file *os.File
}

func newMmapReader(f *os.File) (*mmapReader, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &mmapReader{data: nil, file: f}, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &mmapReader{data: data, file: f}, nil
}

// Close unmaps the file and closes the underlying file handle.
func (m *mmapReader) Close() error {
	if m.data != nil {
		if err := syscall.Munmap(m.data); err != nil {
			return err
		}
		m.data = nil
	}
	if m.file != nil {
		err := m.file.Close()
		m.file = nil
		return err
	}
	return nil
}
