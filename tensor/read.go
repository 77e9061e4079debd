package tensor

import (
	"io"
	"os"
)

// ReadFile reads and parses the tensor file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &IOError{Path: path, Op: "stat", Err: err}
	}
	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	return Parse(data)
}

// ReadFileMmap parses the tensor file at path through a read-only memory
// mapping. Field payloads alias the mapping, so the returned File must be
// closed once the caller has copied what it needs. Compressed files are
// inflated to the heap and the mapping is released immediately.
func ReadFileMmap(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "open", Err: err}
	}

	m, err := newMmapReader(f)
	if err != nil {
		f.Close()
		return nil, &IOError{Path: path, Op: "mmap", Err: err}
	}

	file, err := Parse(m.data)
	if err != nil {
		m.Close()
		return nil, err
	}
	if DetectCompression(m.data) != NoCompression {
		if err := m.Close(); err != nil {
			return nil, &IOError{Path: path, Op: "munmap", Err: err}
		}
		return file, nil
	}
	file.closer = m
	return file, nil
}

// Read parses a tensor file from r, reading it to the end.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	return Parse(data)
}
