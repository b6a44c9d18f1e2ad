package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mercator-hq/arbiter/pkg/review"
)

// createScript stores a record only if the case has none.
// KEYS[1] = record hash key
// KEYS[2] = submission index (sorted set)
// ARGV[1] = record JSON
// ARGV[2] = status
// ARGV[3] = submitted_at (unix nanoseconds)
// ARGV[4] = case id
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1], "record", ARGV[1], "status", ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[4])
return 1
`)

// completeScript moves a PENDING record to REVIEWED.
// KEYS[1] = record hash key
// ARGV[1] = review JSON
// Returns 0 when missing, 1 when already reviewed, 2 on success.
var completeScript = redis.NewScript(`
local status = redis.call("HGET", KEYS[1], "status")
if not status then
    return 0
end
if status ~= "PENDING" then
    return 1
end
redis.call("HSET", KEYS[1], "status", "REVIEWED", "review", ARGV[1])
return 2
`)

// RedisConfig configures the Redis review store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key. Default: "arbiter:review"
	Prefix string
}

// RedisStore is a review.Store backed by Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store connected to cfg.Addr.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(rdb, cfg.Prefix)
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "arbiter:review"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordKey(caseID string) string {
	return fmt.Sprintf("%s:case:%s", s.prefix, caseID)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":index"
}

// Create implements review.Store.
func (s *RedisStore) Create(ctx context.Context, rec *review.Record) (bool, error) {
	stored := rec.Clone()
	stored.Review = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return false, review.NewStorageError("redis", "create", err)
	}

	res, err := createScript.Run(ctx, s.client,
		[]string{s.recordKey(rec.CaseID), s.indexKey()},
		string(data), string(rec.Status), rec.SubmittedAt.UnixNano(), rec.CaseID,
	).Int64()
	if err != nil {
		return false, review.NewStorageError("redis", "create", err)
	}
	return res == 1, nil
}

// Get implements review.Store.
func (s *RedisStore) Get(ctx context.Context, caseID string) (*review.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(caseID)).Result()
	if err != nil {
		return nil, review.NewStorageError("redis", "get", err)
	}
	if len(fields) == 0 {
		return nil, review.ErrReviewNotFound
	}
	rec, err := decodeHash(fields)
	if err != nil {
		return nil, review.NewStorageError("redis", "get", err)
	}
	return rec, nil
}

// Complete implements review.Store.
func (s *RedisStore) Complete(ctx context.Context, caseID string, rv *review.Review) error {
	data, err := json.Marshal(rv)
	if err != nil {
		return review.NewStorageError("redis", "complete", err)
	}

	res, err := completeScript.Run(ctx, s.client, []string{s.recordKey(caseID)}, string(data)).Int64()
	if err != nil {
		return review.NewStorageError("redis", "complete", err)
	}
	switch res {
	case 0:
		return review.ErrReviewNotFound
	case 1:
		return review.ErrAlreadyReviewed
	default:
		return nil
	}
}

// List implements review.Store.
func (s *RedisStore) List(ctx context.Context, status review.Status) ([]*review.Record, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, review.NewStorageError("redis", "list", err)
	}

	out := make([]*review.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, review.ErrReviewNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

// Ping implements review.Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return review.NewStorageError("redis", "ping", err)
	}
	return nil
}

// Close implements review.Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeHash(fields map[string]string) (*review.Record, error) {
	var rec review.Record
	if err := json.Unmarshal([]byte(fields["record"]), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec.Status = review.Status(fields["status"])
	rec.Review = nil
	if data, ok := fields["review"]; ok && data != "" {
		var rv review.Review
		if err := json.Unmarshal([]byte(data), &rv); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		rec.Review = &rv
	}
	return &rec, nil
}
