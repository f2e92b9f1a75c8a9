// internal/common/cache/cache.go

// Package cache stores generated artifacts keyed by structure content hash,
// so repeated runs over an unchanged document reuse the previous result
// instead of regenerating it. Entries carry date-versioned ids (DDMMYY_vN)
// and expire after the configured retention.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"goldenrecord-engine/internal/common/config"
)

const (
	documentPrefix = "goldenrecord:doc:"
	versionPrefix  = "goldenrecord:version:"
)

// Entry is one cached artifact set.
type Entry struct {
	VersionID  string    `json:"versionId"`
	Hash       string    `json:"hash"`
	Client     string    `json:"client"`
	Consultant string    `json:"consultant"`
	CreatedAt  time.Time `json:"createdAt"`
	Metadata   []byte    `json:"metadata"`
	GoldenCSV  []byte    `json:"goldenCsv"`
	Layouts    []byte    `json:"layouts,omitempty"`
}

// Store is a redis-backed artifact cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis with the pipeline's timeouts. TTL bounds entry
// lifetime; zero keeps entries until evicted.
func New(cfg config.RedisConfig, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	return &Store{client: rdb, ttl: ttl}
}

// NewWithClient wraps an existing client; tests pass a miniredis-backed one.
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Ping tests the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// ContentHash fingerprints a structure document. Identical bytes always map
// to the same entry.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// NextVersionID allocates the next id for the given day, DDMMYY_vN. The
// per-day counter lives in redis so concurrent runs never collide.
func (s *Store) NextVersionID(ctx context.Context, day time.Time) (string, error) {
	datePart := day.Format("020106")
	n, err := s.client.Incr(ctx, versionPrefix+datePart).Result()
	if err != nil {
		return "", fmt.Errorf("allocating version id: %w", err)
	}
	return fmt.Sprintf("%s_v%d", datePart, n), nil
}

// Put stores an entry under its content hash.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, documentPrefix+entry.Hash, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing cache entry %s: %w", entry.Hash, err)
	}
	return nil
}

// Get looks up an entry by content hash. A miss is (nil, false, nil), not an
// error; the pipeline regenerates on any cache trouble anyway.
func (s *Store) Get(ctx context.Context, hash string) (*Entry, bool, error) {
	payload, err := s.client.Get(ctx, documentPrefix+hash).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading cache entry %s: %w", hash, err)
	}
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry %s: %w", hash, err)
	}
	return &entry, true, nil
}
