// Package customdict keeps user-added dictionary entries in a Redis set.
//
// Each member is a form<TAB>lemma<TAB>tag line; the set is merged into the main
// dictionary when it is loaded.
package customdict

import (
	"context"
	"fmt"
	"sort"

	"github.com/bastiangx/grammarserve/pkg/dictionary"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key of the entry set.
const DefaultKey = "grammarserve:custom_dict"

// CustomDict wraps a Redis client to store custom dictionary entries.
type CustomDict struct {
	client redis.Cmdable
	key    string
}

// New creates a new CustomDict with the provided Redis client.
// An empty key selects DefaultKey.
func New(client redis.Cmdable, key string) *CustomDict {
	if key == "" {
		key = DefaultKey
	}
	return &CustomDict{client: client, key: key}
}

// Options mirrors the redis connection settings of the config file.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Dial creates a client from opts and checks the connection.
func Dial(ctx context.Context, opts Options) (*CustomDict, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return New(client, opts.Key), nil
}

// Add inserts an entry into the custom dictionary.
func (cd *CustomDict) Add(ctx context.Context, e dictionary.Entry) error {
	return cd.client.SAdd(ctx, cd.key, dictionary.FormatLine(e)).Err()
}

// Remove deletes an entry from the custom dictionary.
func (cd *CustomDict) Remove(ctx context.Context, e dictionary.Entry) error {
	return cd.client.SRem(ctx, cd.key, dictionary.FormatLine(e)).Err()
}

// Entries returns all stored entries in lexical order. Members that do not parse are skipped.
func (cd *CustomDict) Entries(ctx context.Context) ([]dictionary.Entry, error) {
	members, err := cd.client.SMembers(ctx, cd.key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	entries := make([]dictionary.Entry, 0, len(members))
	for _, m := range members {
		e, err := dictionary.ParseLine(m)
		if err != nil {
			log.Warnf("Ignoring custom dictionary member: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close releases the client when it owns one.
func (cd *CustomDict) Close() error {
	if c, ok := cd.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}

var _ dictionary.Source = (*CustomDict)(nil)
