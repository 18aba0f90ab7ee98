package otps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/clockx"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps codes in two kinds of keys:
//
//	otp:user:<user>  -> code                      (string, TTL)
//	otp:code:<code>  -> {<user>: <expires ms>}    (hash, TTL)
//
// Redis expires the keys on its own, so DeleteExpired has nothing to do.
type RedisRepository struct {
	client *redis.Client
	clock  clockx.Clock
}

// upsertRetries bounds how often Upsert restarts after a concurrent write to
// the same user's key.
const upsertRetries = 5

// NewRedisRepository returns a repository over client.
func NewRedisRepository(client *redis.Client, clock clockx.Clock) *RedisRepository {
	return &RedisRepository{client: client, clock: clock}
}

func userKey(userID string) string { return "otp:user:" + userID }
func codeKey(code string) string   { return "otp:code:" + code }

// Upsert replaces the user's code. The user key is watched, so two racing
// calls cannot both drop the same previous code and leave one of the new
// codes orphaned in its hash.
func (r *RedisRepository) Upsert(ctx context.Context, o *models.OTP) error {
	ttl := o.Expires.Sub(r.clock.Now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	expires := strconv.FormatInt(o.Expires.UnixMilli(), 10)

	replace := func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, userKey(o.UserID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if prev != "" {
				p.HDel(ctx, codeKey(prev), o.UserID)
			}
			p.HSet(ctx, codeKey(o.Code), o.UserID, expires)
			p.Expire(ctx, codeKey(o.Code), ttl)
			p.Set(ctx, userKey(o.UserID), o.Code, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < upsertRetries; i++ {
		err := r.client.Watch(ctx, replace, userKey(o.UserID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis error: %s kept changing: %w", userKey(o.UserID), redis.TxFailedErr)
}

func (r *RedisRepository) FindByCode(ctx context.Context, code, preferUser string) (*models.OTP, error) {
	holders, err := r.client.HGetAll(ctx, codeKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(holders) == 0 {
		return nil, common.ErrorNotFound
	}

	userID := preferUser
	ms, ok := holders[preferUser]
	if !ok {
		users := make([]string, 0, len(holders))
		for u := range holders {
			users = append(users, u)
		}
		sort.Strings(users)
		userID, ms = users[0], holders[users[0]]
	}

	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis error: malformed expiry for %s: %w", codeKey(code), err)
	}

	return &models.OTP{UserID: userID, Code: code, Expires: time.UnixMilli(n)}, nil
}

func (r *RedisRepository) Consume(ctx context.Context, userID, code string) (bool, error) {
	var removed *redis.IntCmd

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		removed = p.HDel(ctx, codeKey(code), userID)
		p.Del(ctx, userKey(userID))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return removed.Val() > 0, nil
}

func (r *RedisRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
