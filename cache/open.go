package cache

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownScheme is returned by Open for an unsupported URL scheme.
var ErrUnknownScheme = errors.New("cache: unknown backend scheme")

type ownedBackend struct {
	Backend
	release func() error
}

func (o *ownedBackend) Close() error {
	err := o.Backend.Close()
	if rerr := o.release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// Open creates a Backend from a URL. Supported forms:
//
//	memory://
//	redis://[:password@]host:port/db   (also rediss://)
//	memcache://host1:11211,host2:11211
//	sqlite:///path/to/cache.db         (sqlite:// alone is in-memory)
//
// The query parameters "prefix" and "max_value_size" apply to every
// backend. Unlike the New* constructors, a Backend returned by Open owns its
// client and closes it on Close.
func Open(ctx context.Context, rawURL string, opts ...Option) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: invalid backend url %q", rawURL)
	}
	q := u.Query()
	if p := q.Get("prefix"); p != "" {
		opts = append(opts, WithPrefix(p))
	}
	if s := q.Get("max_value_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "cache: invalid max_value_size %q", s)
		}
		opts = append(opts, WithMaxValueSize(n))
	}

	switch u.Scheme {
	case "memory", "mem":
		return NewInMemory(ctx, opts...), nil
	case "redis", "rediss":
		// go-redis rejects query options it does not know about
		u.RawQuery = ""
		ropts, err := redis.ParseURL(u.String())
		if err != nil {
			return nil, errors.Wrap(err, "cache: invalid redis url")
		}
		client := redis.NewClient(ropts)
		return &ownedBackend{NewRedis(client, opts...), client.Close}, nil
	case "memcache", "memcached":
		if u.Host == "" {
			return nil, errors.New("cache: memcache url needs at least one server")
		}
		// memcache clients hold only idle connections, nothing to release
		return NewMemcached(memcache.New(strings.Split(u.Host, ",")...), opts...), nil
	case "sqlite", "sqlite3":
		return NewSQLite(ctx, u.Host+u.Path, opts...)
	default:
		return nil, errors.Wrapf(ErrUnknownScheme, "%q", u.Scheme)
	}
}
