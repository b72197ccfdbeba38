package keys

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeShortKey(t *testing.T) {
	assert.Equal(t, "report-2024", Normalize("report-2024", "", DefaultMaxLength))
	assert.Equal(t, "example.com:report-2024", Normalize("report-2024", "example.com", DefaultMaxLength))
}

func TestNormalizeExactLimit(t *testing.T) {
	key := strings.Repeat("a", DefaultMaxLength)
	assert.Equal(t, key, Normalize(key, "", DefaultMaxLength))
}

func TestNormalizeLongKey(t *testing.T) {
	key := strings.Repeat("k", 500)
	got := Normalize(key, "", DefaultMaxLength)
	assert.Len(t, got, DefaultMaxLength)

	sum := md5.Sum([]byte(key))
	digest := hex.EncodeToString(sum[:])
	assert.Equal(t, key[:DefaultMaxLength-32]+digest, got)
}

func TestNormalizeDigestCoversNamespace(t *testing.T) {
	key := strings.Repeat("k", 300)
	a := Normalize(key, "a.example.com", DefaultMaxLength)
	b := Normalize(key, "b.example.com", DefaultMaxLength)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "a.example.com:"))
}

func TestNormalizeBound(t *testing.T) {
	for _, n := range []int{0, 1, 100, 208, 239, 240, 241, 1000, 5000} {
		s := strings.Repeat("x", n)
		assert.LessOrEqual(t, len(Normalize(s, "", DefaultMaxLength)), DefaultMaxLength, "length %d", n)
		assert.LessOrEqual(t, len(Normalize(s, "site.example.com:/root/", DefaultMaxLength)), DefaultMaxLength, "length %d", n)
	}
}

func TestNormalizeDistinctLongKeys(t *testing.T) {
	prefix := strings.Repeat("p", 400)
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		s := fmt.Sprintf("%s-%d", prefix, i)
		k := Normalize(s, "", DefaultMaxLength)
		if other, ok := seen[k]; ok {
			t.Fatalf("collision between %q and %q", other, s)
		}
		seen[k] = s
	}
}

func TestNormalizeTinyLimit(t *testing.T) {
	got := Normalize(strings.Repeat("z", 100), "", 10)
	assert.Len(t, got, 10)
}

func TestNormalizeEscapes(t *testing.T) {
	assert.Equal(t, "a%20b", Normalize("a b", "", DefaultMaxLength))
	assert.Equal(t, "100%25", Normalize("100%", "", DefaultMaxLength))
	assert.Equal(t, "caf%C3%A9", Normalize("café", "", DefaultMaxLength))
	assert.Equal(t, "line%0Abreak", Normalize("line\nbreak", "", DefaultMaxLength))
	// escaping must stay injective
	assert.NotEqual(t, Normalize("a b", "", DefaultMaxLength), Normalize("a%20b", "", DefaultMaxLength))

	long := strings.Repeat("é", 300)
	got := Normalize(long, "", DefaultMaxLength)
	assert.Len(t, got, DefaultMaxLength)
	for i := 0; i < len(got); i++ {
		assert.False(t, needsEscape(got[i]) && got[i] != '%', "byte %d not printable ascii", i)
	}
}

func TestSiteResolver(t *testing.T) {
	ctx := context.Background()

	ns, err := Site("example.com", "").Namespace(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "example.com", ns)

	ns, err = Site("example.com", "/reviews/").Namespace(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "example.com:/reviews/", ns)

	_, err = Site("", "/reviews/").Namespace(ctx)
	assert.True(t, errors.Is(err, ErrNoNamespace))
}

func TestNormalizerFallsBackOnResolverError(t *testing.T) {
	failing := ResolverFunc(func(context.Context) (string, error) {
		return "", errors.New("site table unavailable")
	})
	n := NewNormalizer(0, failing)
	assert.Equal(t, DefaultMaxLength, n.MaxLength())
	assert.Equal(t, "key", n.Normalize(context.Background(), "key"))
}

func TestNormalizerWithNamespace(t *testing.T) {
	n := NewNormalizer(50, Site("example.com", "/root/"))
	assert.Equal(t, "example.com:/root/:key", n.Normalize(context.Background(), "key"))

	long := n.Normalize(context.Background(), strings.Repeat("k", 100))
	assert.Len(t, long, 50)
	assert.True(t, strings.HasPrefix(long, "example.com:/root/"))
}

func TestNormalizerNilResolver(t *testing.T) {
	n := NewNormalizer(DefaultMaxLength, nil)
	assert.Equal(t, "key", n.Normalize(context.Background(), "key"))
	assert.Equal(t, "key", NewNormalizer(0, Static("")).Normalize(context.Background(), "key"))
	assert.Equal(t, "ns:key", NewNormalizer(0, Static("ns")).Normalize(context.Background(), "key"))
}
