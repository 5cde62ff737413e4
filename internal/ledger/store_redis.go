package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

const redisLedgerKeyPrefix = "sapp:ledger:"

// RedisStore keeps each session's ledger in a Redis list so replicas can share
// a session's history. Every append refreshes the key TTL.
type RedisStore struct {
	client   *redis.Client
	capacity int
	ttl      time.Duration
}

// NewRedisStore creates a Redis-backed store. ttl should match the scan session idle TTL.
func NewRedisStore(client *redis.Client, capacity int, ttl time.Duration) *RedisStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisStore{client: client, capacity: capacity, ttl: ttl}
}

// Append pushes result to the head of the list and trims it to capacity in one transaction.
func (s *RedisStore) Append(ctx context.Context, session id.ScanSessionID, result models.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}

	key := ledgerKey(session)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(s.capacity-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, session id.ScanSessionID) ([]models.ScanResult, error) {
	raw, err := s.client.LRange(ctx, ledgerKey(session), 0, int64(s.capacity-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	results := make([]models.ScanResult, 0, len(raw))
	for _, item := range raw {
		var r models.ScanResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *RedisStore) Discard(ctx context.Context, session id.ScanSessionID) error {
	if err := s.client.Del(ctx, ledgerKey(session)).Err(); err != nil {
		return fmt.Errorf("discard ledger: %w", err)
	}
	return nil
}

func ledgerKey(session id.ScanSessionID) string {
	return redisLedgerKeyPrefix + session.String()
}
