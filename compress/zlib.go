// Package compress provides the lossless compression pass applied to
// encoded cache values before they are split into chunks.
package compress

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

// ErrEmpty is returned when inflating an empty buffer.
var ErrEmpty = errors.New("compress: empty input")

// Deflate compresses data with zlib at the default level.
func Deflate(data []byte) ([]byte, error) {
	return DeflateLevel(data, zlib.DefaultCompression)
}

// DeflateLevel compresses data with zlib at the given level.
func DeflateLevel(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, errors.Wrapf(err, "compress: invalid level %d", level)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "compress: deflate")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "compress: deflate")
	}
	return buf.Bytes(), nil
}

// Inflate reverses Deflate. Truncated or foreign input is an error.
func Inflate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "compress: inflate")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "compress: inflate")
	}
	return out, nil
}
