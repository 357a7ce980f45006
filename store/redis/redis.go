// Package redis stores stage records as one Redis list per request.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/defistate/token-launcher-go/store"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "launcher:"

// appendScript pushes a record unless its key was already seen for the request.
var appendScript = redis.NewScript(`
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
	return 0
end
redis.call('RPUSH', KEYS[1], ARGV[2])
return 1
`)

// Interface defines the minimal Redis interface the store needs.
type Interface interface {
	redis.Scripter
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Store is a Redis store.Store.
type Store struct {
	client Interface
	prefix string
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client.
func New(client Interface, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to a redis:// URL and verifies the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, DefaultPrefix), nil
}

func (s *Store) listKey(requestID string) string {
	return s.prefix + "records:" + requestID
}

func (s *Store) setKey(requestID string) string {
	return s.prefix + "record-keys:" + requestID
}

func (s *Store) Append(ctx context.Context, r *store.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	added, err := appendScript.Run(ctx, s.client,
		[]string{s.listKey(r.RequestID), s.setKey(r.RequestID)},
		r.Key(), payload,
	).Int()
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if added == 0 {
		return store.ErrDuplicateKey
	}
	return nil
}

func (s *Store) Load(ctx context.Context, requestID string) ([]store.Record, error) {
	values, err := s.client.LRange(ctx, s.listKey(requestID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if len(values) == 0 {
		return nil, store.ErrNotFound
	}

	records := make([]store.Record, 0, len(values))
	for _, v := range values {
		var r store.Record
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
