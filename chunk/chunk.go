// Package chunk encodes values into backend-sized pieces and reassembles them.
//
// A value is serialized with msgpack, optionally zlib-compressed, and the
// resulting byte stream is split into chunks no larger than the chunk size.
// Decoding concatenates the chunks in order, decompresses when asked and
// deserializes into the caller's type. The two directions are exact inverses
// for any msgpack-serializable value.
//
// On the backend a chunked value occupies an index record under the base key,
// holding the chunk count, and one Record per chunk under "<key>-<i>".
package chunk

import (
	"bytes"
	"strconv"

	"github.com/agentuity/go-memoize/compress"
	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultSize keeps a chunk under memcached's 1 MiB item ceiling with room
// for the backend's own framing.
const DefaultSize = 1<<20 - 1024

// ErrCorrupt marks chunk data that could not be decompressed or deserialized.
var ErrCorrupt = errors.New("chunk: corrupt data")

// Record wraps a single chunk so backends store it as a one element array of
// binary data rather than attempting to treat it as text.
type Record struct {
	_msgpack struct{} `msgpack:",as_array"`
	Data     []byte
}

// ChunkKey returns the backend key of chunk i of key.
func ChunkKey(key string, i int) string {
	return key + "-" + strconv.Itoa(i)
}

// ChunkKeys returns the backend keys of chunks 0..n-1 of key.
func ChunkKeys(key string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = ChunkKey(key, i)
	}
	return keys
}

// Split cuts data into consecutive pieces of at most size bytes. The pieces
// alias data. An empty input yields a single empty chunk.
func Split(data []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultSize
	}
	if len(data) == 0 {
		return [][]byte{{}}
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > size {
		chunks = append(chunks, data[:size:size])
		data = data[size:]
	}
	return append(chunks, data)
}

// Encode serializes value, compresses it when compressed is true and splits
// the result into chunks of at most size bytes.
func Encode(value any, compressed bool, size int) ([][]byte, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "chunk: serialize")
	}
	if compressed {
		if data, err = compress.Deflate(data); err != nil {
			return nil, err
		}
	}
	return Split(data, size), nil
}

// Decode joins chunks in order, decompresses them when compressed is true
// and deserializes the stream into out, which must be a pointer.
func Decode(chunks [][]byte, compressed bool, out any) error {
	data := bytes.Join(chunks, nil)
	if compressed {
		var err error
		if data, err = compress.Inflate(data); err != nil {
			return errors.Mark(errors.Wrap(err, "chunk: decompress"), ErrCorrupt)
		}
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return errors.Mark(errors.Wrap(err, "chunk: deserialize"), ErrCorrupt)
	}
	return nil
}

// DecodeValue is Decode for a value of type T.
func DecodeValue[T any](chunks [][]byte, compressed bool) (T, error) {
	var out T
	if err := Decode(chunks, compressed, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
