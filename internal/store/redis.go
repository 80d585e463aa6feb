package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nemaeval/nema-eval/internal/evaluation"
)

// RedisStore persists runs in Redis: one JSON payload key per run, plus a
// sorted-set index by creation time and a hash of run summaries.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 keeps runs forever
}

// NewRedisStore connects to Redis at url.
// Returns error if connection fails.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "nema:runs:",
		ttl:    ttl,
	}, nil
}

func (rs *RedisStore) runKey(runID string) string { return rs.prefix + "run:" + runID }
func (rs *RedisStore) indexKey() string { return rs.prefix + "index" }
func (rs *RedisStore) summaryKey() string { return rs.prefix + "summaries" }

func (rs *RedisStore) Save(ctx context.Context, snap *evaluation.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	summary, err := json.Marshal(summaryOf(snap))
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	// Use pipeline for atomic operation
	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.runKey(snap.RunID), payload, rs.ttl)
	pipe.ZAdd(ctx, rs.indexKey(), redis.Z{
		Score:  float64(snap.CreatedAt.UnixMilli()),
		Member: snap.RunID,
	})
	pipe.HSet(ctx, rs.summaryKey(), snap.RunID, summary)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func (rs *RedisStore) Load(ctx context.Context, runID string) (*evaluation.Snapshot, error) {
	data, err := rs.client.Get(ctx, rs.runKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, runNotFound(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}

	var snap evaluation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", runID, err)
	}
	return &snap, nil
}

func (rs *RedisStore) List(ctx context.Context) ([]Summary, error) {
	if err := rs.prune(ctx); err != nil {
		return nil, err
	}

	ids, err := rs.client.ZRevRange(ctx, rs.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	raw, err := rs.client.HMGet(ctx, rs.summaryKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading run summaries: %w", err)
	}

	list := make([]Summary, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			// Skip invalid entries
			continue
		}
		var sum Summary
		if err := json.Unmarshal([]byte(s), &sum); err != nil {
			continue
		}
		list = append(list, sum)
	}
	sortSummaries(list)
	return list, nil
}

// prune drops index and summary entries for runs older than the TTL, whose
// payload keys Redis has already expired.
func (rs *RedisStore) prune(ctx context.Context) error {
	if rs.ttl <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-rs.ttl).UnixMilli()
	expired, err := rs.client.ZRangeByScore(ctx, rs.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return fmt.Errorf("finding expired runs: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	members := make([]interface{}, len(expired))
	for i, id := range expired {
		members[i] = id
	}

	pipe := rs.client.TxPipeline()
	pipe.ZRem(ctx, rs.indexKey(), members...)
	pipe.HDel(ctx, rs.summaryKey(), expired...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pruning expired runs: %w", err)
	}
	return nil
}

func (rs *RedisStore) Delete(ctx context.Context, runID string) error {
	pipe := rs.client.TxPipeline()
	pipe.Del(ctx, rs.runKey(runID))
	pipe.ZRem(ctx, rs.indexKey(), runID)
	pipe.HDel(ctx, rs.summaryKey(), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// SetPrefix changes the key namespace, e.g. to isolate tests.
func (rs *RedisStore) SetPrefix(prefix string) {
	rs.prefix = prefix
}
