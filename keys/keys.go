// Package keys builds backend-safe cache keys from logical keys.
//
// A normalized key is the logical key, optionally prefixed with a namespace
// ("<namespace>:<key>"), escaped to printable ASCII and bounded in length.
// Keys longer than the limit keep their leading bytes and replace the tail
// with the MD5 hex digest of the full, untruncated key, so distinct long
// keys that share a prefix still map to distinct cache keys.
package keys

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultMaxLength is memcached's 250 byte key limit minus room for the
// "-<n>" suffix used by chunk records.
const DefaultMaxLength = 240

// digestLength is the length of a hex-encoded MD5 sum.
const digestLength = md5.Size * 2

// ErrNoNamespace is returned by resolvers that have nothing to prefix.
var ErrNoNamespace = errors.New("keys: namespace not available")

// Resolver supplies the namespace prepended to every logical key.
type Resolver interface {
	Namespace(ctx context.Context) (string, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ctx context.Context) (string, error)

func (f ResolverFunc) Namespace(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a Resolver that always yields ns.
func Static(ns string) Resolver {
	return ResolverFunc(func(context.Context) (string, error) {
		if ns == "" {
			return "", ErrNoNamespace
		}
		return ns, nil
	})
}

// Site returns a Resolver for a site domain with an optional site root,
// yielding "<domain>:<root>" or "<domain>". The root lets several installs
// share one host and one cache.
func Site(domain, root string) Resolver {
	return ResolverFunc(func(context.Context) (string, error) {
		if domain == "" {
			return "", errors.Wrap(ErrNoNamespace, "no site domain configured")
		}
		if root != "" {
			return domain + ":" + root, nil
		}
		return domain, nil
	})
}

// Normalize returns the cache key for key under namespace, at most
// maxLength bytes long. An empty namespace leaves the key unprefixed.
func Normalize(key, namespace string, maxLength int) string {
	if namespace != "" {
		key = namespace + ":" + key
	}
	key = escape(key)
	if maxLength <= 0 || len(key) <= maxLength {
		return key
	}
	sum := md5.Sum([]byte(key))
	digest := hex.EncodeToString(sum[:])
	if maxLength <= digestLength {
		return digest[:maxLength]
	}
	return key[:maxLength-digestLength] + digest
}

// Normalizer applies Normalize with a fixed limit and resolver.
type Normalizer struct {
	maxLength int
	resolver  Resolver
}

// NewNormalizer returns a Normalizer. A maxLength <= 0 selects
// DefaultMaxLength; a nil resolver disables namespacing.
func NewNormalizer(maxLength int, resolver Resolver) *Normalizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Normalizer{maxLength: maxLength, resolver: resolver}
}

// MaxLength returns the configured key limit.
func (n *Normalizer) MaxLength() int {
	return n.maxLength
}

// Normalize never fails: a resolver error falls back to the bare key.
func (n *Normalizer) Normalize(ctx context.Context, key string) string {
	var namespace string
	if n.resolver != nil {
		if ns, err := n.resolver.Namespace(ctx); err == nil {
			namespace = ns
		}
	}
	return Normalize(key, namespace, n.maxLength)
}

const hexDigits = "0123456789ABCDEF"

func needsEscape(b byte) bool {
	return b <= ' ' || b >= 0x7f || b == '%'
}

// escape percent-encodes whitespace, control, non-ASCII and '%' bytes so
// every character of the result is a single printable ASCII byte.
func escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if needsEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		b := s[i]
		if needsEscape(b) {
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[b>>4])
			sb.WriteByte(hexDigits[b&0x0f])
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}
