package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue stores jobs in a sorted set scored by NotBefore. Claimed jobs
// sit in a processing hash keyed by job id until acked, so both pending and
// in-flight notifications survive a restart.
type RedisQueue struct {
	client        *redis.Client
	queueKey      string
	processingKey string
}

func NewRedisQueue(redisURL, prefix string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if prefix == "" {
		prefix = "storefront:notifications"
	}

	return &RedisQueue{
		client:        client,
		queueKey:      prefix + ":queue",
		processingKey: prefix + ":processing",
	}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	notBefore := job.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now()
	}

	return q.client.ZAdd(ctx, q.queueKey, redis.Z{
		Score:  float64(notBefore.UnixNano()),
		Member: string(data),
	}).Err()
}

// claimScript moves the earliest due job from the queue into the
// processing hash in one step; a job is always in exactly one of the two.
var claimScript = redis.NewScript(`
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #items == 0 then
	return false
end
local member = items[1]
redis.call('ZREM', KEYS[1], member)
local job = cjson.decode(member)
redis.call('HSET', KEYS[2], job.id, member)
return member
`)

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)

	member, err := claimScript.Run(ctx, q.client, []string{q.queueKey, q.processingKey}, now).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	return q.client.HDel(ctx, q.processingKey, jobID).Err()
}

// Recover puts jobs left in the processing hash by a previous worker back
// on the queue, due immediately.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	inFlight, err := q.client.HGetAll(ctx, q.processingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read processing jobs: %w", err)
	}

	score := float64(time.Now().UnixNano())
	recovered := 0
	for id, member := range inFlight {
		_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, q.queueKey, redis.Z{Score: score, Member: member})
			pipe.HDel(ctx, q.processingKey, id)
			return nil
		})
		if err != nil {
			return recovered, fmt.Errorf("failed to requeue job %s: %w", id, err)
		}
		recovered++
	}
	return recovered, nil
}

func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueKey).Result()
}

func (q *RedisQueue) ProcessingCount(ctx context.Context) (int64, error) {
	return q.client.HLen(ctx, q.processingKey).Result()
}
