package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/coreerrors"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisStore implements Store against a shared Redis instance. Every call is
// routed through a circuit breaker: once Redis starts failing consistently
// the breaker opens and calls fail fast, which is what drives the
// degrade-to-permissive behavior spec §7 (BackingStoreUnavailable) asks for
// instead of letting every request pay a full dial timeout.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewRedisStore(client *redis.Client, log zerolog.Logger) *RedisStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kvstore-redis",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("kvstore circuit breaker state change")
		},
	})
	return &RedisStore{client: client, breaker: breaker, log: log}
}

func idempotencyKey(transport, messageID string) string {
	return fmt.Sprintf("processed:%s:%s", transport, messageID)
}

func lockKey(userID string) string {
	return fmt.Sprintf("lock:user:%s", userID)
}

func cooldownKey(userID string) string {
	return fmt.Sprintf("cooldown:user:%s", userID)
}

func (s *RedisStore) Seen(ctx context.Context, transport, messageID string) (bool, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		n, err := s.client.Exists(ctx, idempotencyKey(transport, messageID)).Result()
		return n > 0, err
	})
	if err != nil {
		s.log.Warn().Err(err).Str("transport", transport).Str("message_id", messageID).Msg("idempotency store unavailable, proceeding permissively")
		return false, coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.Seen", err)
	}
	return v.(bool), nil
}

func (s *RedisStore) Mark(ctx context.Context, transport, messageID string) error {
	ttl := 24 * time.Hour
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, idempotencyKey(transport, messageID), time.Now().Unix(), ttl).Err()
	})
	if err != nil {
		s.log.Warn().Err(err).Str("transport", transport).Str("message_id", messageID).Msg("failed to mark message as processed")
		return coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.Mark", err)
	}
	return nil
}

func (s *RedisStore) Acquire(ctx context.Context, userID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	v, err := s.breaker.Execute(func() (any, error) {
		return s.client.SetNX(ctx, lockKey(userID), token, ttl).Result()
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("lock store unavailable")
		return "", false, coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.Acquire", err)
	}
	ok := v.(bool)
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *RedisStore) Release(ctx context.Context, userID, token string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.Eval(ctx, releaseScript, []string{lockKey(userID)}, token).Result()
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to release lock")
		return coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.Release", err)
	}
	return nil
}

func (s *RedisStore) InCooldown(ctx context.Context, userID string) (bool, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		n, err := s.client.Exists(ctx, cooldownKey(userID)).Result()
		return n > 0, err
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("cooldown store unavailable, skipping cooldown")
		return false, coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.InCooldown", err)
	}
	return v.(bool), nil
}

func (s *RedisStore) SetCooldown(ctx context.Context, userID string, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, cooldownKey(userID), 1, ttl).Err()
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to set cooldown")
		return coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.SetCooldown", err)
	}
	return nil
}

func queueKey(queue string) string {
	return fmt.Sprintf("queue:%s", queue)
}

func (s *RedisStore) Push(ctx context.Context, queue string, payload []byte) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.RPush(ctx, queueKey(queue), payload).Err()
	})
	if err != nil {
		return coreerrors.New(coreerrors.KindQueueEnqueueFailure, "kvstore.Push", err)
	}
	return nil
}

func (s *RedisStore) Range(ctx context.Context, queue string, start, stop int64) ([][]byte, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.client.LRange(ctx, queueKey(queue), start, stop).Result()
	})
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.Range", err)
	}
	strs := v.([]string)
	out := make([][]byte, len(strs))
	for i, str := range strs {
		out[i] = []byte(str)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, queue string, payload []byte) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.LRem(ctx, queueKey(queue), 1, payload).Err()
	})
	if err != nil {
		return coreerrors.New(coreerrors.KindBackingStoreDown, "kvstore.Delete", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
