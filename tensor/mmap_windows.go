//go:build windows
// +build windows

package tensor

import (
	"os"
	"syscall"
	"unsafe"
)

// mmapReader holds a read-only view of a whole file.
type mmapReader struct {
	data   []byte
	file   *os.File
	handle syscall.Handle
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

	sizeLow := uint32(size)
	sizeHigh := uint32(size >> 32)
	handle, err := syscall.CreateFileMapping(syscall.Handle(f.Fd()), nil, syscall.PAGE_READONLY, sizeHigh, sizeLow, nil)
	if err != nil {
		return nil, err
	}

	ptr, err := syscall.MapViewOfFile(handle, syscall.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		syscall.CloseHandle(handle)
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
	return &mmapReader{data: data, file: f, handle: handle}, nil
}

// Close unmaps the view and closes the mapping and file handles.
func (m *mmapReader) Close() error {
	if m.data != nil {
		syscall.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.data[0])))
		m.data = nil
	}
	if m.handle != 0 {
		syscall.CloseHandle(m.handle)
		m.handle = 0
	}
	if m.file != nil {
		err := m.file.Close()
		m.file = nil
		return err
	}
	return nil
}
