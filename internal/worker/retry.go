package worker

// retry.go
// Failed jobs wait in a sorted set scored by their due time. A ticker moves
// the due ones back to the work queue.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	RetryPrefix       = "retry:"
	retryTickInterval = 5 * time.Second
	retryBatchSize    = 50
)

func programarReintento(ctx context.Context, rdb *redis.Client, queue string, job Job, cuando time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.ZAdd(ctx, RetryPrefix+queue, redis.Z{Score: float64(cuando.Unix()), Member: string(data)}).Err()
}

func (p *Pool) runRetries(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(retryTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("queue", p.queue).Msg("retry scheduler shutting down")
			return
		case <-ticker.C:
			if n, err := moverVencidos(ctx, p.rdb, p.queue, time.Now()); err != nil {
				log.Error().Err(err).Str("queue", p.queue).Msg("retry scheduler: scan failed")
			} else if n > 0 {
				log.Info().Int("count", n).Str("queue", p.queue).Msg("retry scheduler: jobs requeued")
			}
		}
	}
}

// moverVencidos requeues jobs whose retry time has passed. ZRem decides who
// owns a member, so two server instances never requeue the same job twice.
func moverVencidos(ctx context.Context, rdb *redis.Client, queue string, now time.Time) (int, error) {
	key := RetryPrefix + queue
	vencidos, err := rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	movidos := 0
	for _, m := range vencidos {
		removed, err := rdb.ZRem(ctx, key, m).Result()
		if err != nil {
			return movidos, err
		}
		if removed == 0 {
			continue
		}
		if err := rdb.LPush(ctx, queue, m).Err(); err != nil {
			return movidos, err
		}
		movidos++
	}
	return movidos, nil
}
