package tensor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the stream compression applied to a whole tensor file.
type Compression uint8

const (
	// NoCompression stores the container as is.
	NoCompression Compression = iota
	// ZstdCompression wraps the container in a zstd frame.
	ZstdCompression
	// GzipCompression wraps the container in a gzip member.
	GzipCompression
	// ZlibCompression wraps the container in a zlib stream.
	ZlibCompression
)

// String returns the name of the compression method.
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	case GzipCompression:
		return "gzip"
	case ZlibCompression:
		return "zlib"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// DefaultMaxDecompressedSize bounds the inflated size of a compressed
// tensor file unless changed with SetMaxDecompressedSize.
const DefaultMaxDecompressedSize = 1 << 30

// ErrSizeLimit is wrapped by CorruptDataError when a compressed stream
// inflates past the configured limit.
var ErrSizeLimit = errors.New("tensor: decompressed size limit exceeded")

var maxDecompressedSize atomic.Int64

func init() {
	maxDecompressedSize.Store(DefaultMaxDecompressedSize)
}

// SetMaxDecompressedSize sets the largest container, in bytes, that a
// compressed file may inflate to. A limit of 0 or less disables the check.
// It returns the previous limit.
func SetMaxDecompressedSize(limit int64) int64 {
	return maxDecompressedSize.Swap(limit)
}

// MaxDecompressedSize returns the current decompression limit.
func MaxDecompressedSize() int64 {
	return maxDecompressedSize.Load()
}

// DetectCompression identifies the stream compression of data from its
// leading bytes. Uncompressed tensor files start with 't', which matches
// none of the signatures.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return ZstdCompression
	case len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B:
		return GzipCompression
	case isZlibHeader(data):
		return ZlibCompression
	}
	return NoCompression
}

// isZlibHeader checks the RFC 1950 header: deflate method and a CMF/FLG
// pair divisible by 31.
func isZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// decompress undoes c on data, refusing output larger than the
// configured limit.
func decompress(data []byte, c Compression) ([]byte, error) {
	limit := MaxDecompressedSize()
	var (
		out []byte
		err error
	)
	switch c {
	case NoCompression:
		return data, nil
	case ZstdCompression:
		out, err = zstdDecodeAll(data, limit)
	case GzipCompression:
		var zr *gzip.Reader
		zr, err = gzip.NewReader(bytes.NewReader(data))
		if err == nil {
			out, err = readLimited(zr, limit)
			zr.Close()
		}
	case ZlibCompression:
		var zr io.ReadCloser
		zr, err = zlib.NewReader(bytes.NewReader(data))
		if err == nil {
			out, err = readLimited(zr, limit)
			zr.Close()
		}
	default:
		return nil, &FormatError{Reason: "unknown compression " + c.String()}
	}
	if err != nil {
		return nil, &CorruptDataError{Reason: c.String() + " stream", Err: err}
	}
	return out, nil
}

func zstdDecodeAll(data []byte, limit int64) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if limit > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(limit)))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, sizeLimitError(limit)
	}
	return out, err
}

// readLimited reads r to the end, failing once more than limit bytes arrive.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, sizeLimitError(limit)
	}
	return out, nil
}

func sizeLimitError(limit int64) error {
	return fmt.Errorf("%w: more than %d bytes", ErrSizeLimit, limit)
}

// compressor wraps w so that written bytes are compressed with c.
func compressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case ZstdCompression:
		return zstd.NewWriter(w)
	case GzipCompression:
		return gzip.NewWriter(w), nil
	case ZlibCompression:
		return zlib.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("tensor: unsupported compression %v", c)
	}
}
