package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInflate(t *testing.T) {
	valid, err := Deflate([]byte("Hello World"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		want    []byte
		wantErr bool
	}{
		{
			name:    "empty input",
			data:    []byte{},
			want:    nil,
			wantErr: true,
		},
		{
			name:    "valid zlib data",
			data:    valid,
			want:    []byte("Hello World"),
			wantErr: false,
		},
		{
			name:    "invalid zlib data",
			data:    []byte{1, 2, 3, 4},
			want:    nil,
			wantErr: true,
		},
		{
			name:    "truncated zlib data",
			data:    valid[:len(valid)-3],
			want:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Inflate(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Inflate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Inflate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInflateEmpty(t *testing.T) {
	_, err := Inflate(nil)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestDeflateRoundTrip(t *testing.T) {
	random := make([]byte, 64*1024)
	rand.New(rand.NewSource(1)).Read(random)

	for name, data := range map[string][]byte{
		"empty":      {},
		"repetitive": bytes.Repeat([]byte("x"), 1<<20),
		"random":     random,
	} {
		t.Run(name, func(t *testing.T) {
			packed, err := Deflate(data)
			require.NoError(t, err)
			unpacked, err := Inflate(packed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, unpacked))
		})
	}
}

func TestDeflateShrinksRepetitiveInput(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 3_000_000)
	packed, err := Deflate(data)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data)/100)
}

func TestDeflateLevelInvalid(t *testing.T) {
	_, err := DeflateLevel([]byte("x"), 42)
	assert.Error(t, err)
}
