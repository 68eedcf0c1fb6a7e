package cleanup

import (
	"context"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultQueueKey - 삭제 예약 sorted set 키 (score = 삭제 시각 unix ms)
const DefaultQueueKey = "tryon:cleanup:queue"

// RedisQueue - Redis sorted set 기반 지연 삭제 큐
// 재시작 후에도 예약이 유지되며, ZREM 으로 선점한 인스턴스만 삭제한다.
type RedisQueue struct {
	rdb      *redis.Client
	key      string
	clock    clock.Clock
	remove   DeleteFunc
	interval time.Duration
	fallback Scheduler
}

// NewRedisQueue - Redis 지연 큐 생성
// Redis 쓰기가 실패하면 fallback 스케줄러로 예약한다.
func NewRedisQueue(rdb *redis.Client, key string, clk clock.Clock, remove DeleteFunc, interval time.Duration, fallback Scheduler) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{
		rdb:      rdb,
		key:      key,
		clock:    clk,
		remove:   remove,
		interval: interval,
		fallback: fallback,
	}
}

// Schedule - after 이후 path 삭제 예약
func (q *RedisQueue) Schedule(path string, after time.Duration) {
	dueAt := q.clock.Now().Add(after).UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.rdb.ZAdd(ctx, q.key, redis.Z{Score: float64(dueAt), Member: path}).Err(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("⚠️  [Cleanup] Redis schedule failed, using in-process timer")
		if q.fallback != nil {
			q.fallback.Schedule(path, after)
		}
		return
	}

	log.Debug().Str("path", path).Dur("after", after).Msg("🕒 [Cleanup] Deletion queued in Redis")
}

// Drain - 기한이 지난 항목 삭제, 삭제 시도한 개수 반환
func (q *RedisQueue) Drain(ctx context.Context) (int, error) {
	now := q.clock.Now().UnixMilli()

	due, err := q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, path := range due {
		removed, err := q.rdb.ZRem(ctx, q.key, path).Result()
		if err != nil {
			return handled, err
		}
		// 다른 인스턴스가 먼저 가져감
		if removed == 0 {
			continue
		}
		removeAndLog(q.remove, path)
		handled++
	}

	return handled, nil
}

// Run - interval 마다 Drain, ctx 취소 시 종료
func (q *RedisQueue) Run(ctx context.Context) error {
	log.Info().Str("key", q.key).Dur("interval", q.interval).Msg("👀 [Cleanup] Watching Redis deletion queue")

	ticker := q.clock.Ticker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("🛑 [Cleanup] Redis deletion queue stopped")
			return nil
		case <-ticker.C:
			if n, err := q.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error().Err(err).Msg("❌ [Cleanup] Redis drain failed")
			} else if n > 0 {
				log.Info().Int("count", n).Msg("🧼 [Cleanup] Drained expired files")
			}
		}
	}
}
