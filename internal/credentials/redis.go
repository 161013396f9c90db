package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"cashbook/internal/core"
)

const keyPrefix = "cashbook:token:"

// RedisStore keeps tokens as JSON values that expire with the token.
type RedisStore struct {
	client *goredis.Client
	now    func() time.Time
}

// NewRedisClient connects and pings the server.
func NewRedisClient(addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

type redisCredential struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func key(userID string) string { return keyPrefix + userID }

func (s *RedisStore) SaveCredential(ctx context.Context, c core.Credential) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now().UTC()
	}

	var ttl time.Duration
	if !c.Expiry.IsZero() {
		ttl = c.Expiry.Sub(s.now())
		if ttl <= 0 {
			// already expired: nothing worth keeping
			return s.ClearCredential(ctx, c.UserID)
		}
	}

	data, err := json.Marshal(redisCredential{
		AccessToken: c.AccessToken,
		Expiry:      c.Expiry,
		UpdatedAt:   c.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := s.client.Set(ctx, key(c.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", core.ErrTransport, err)
	}
	return nil
}

func (s *RedisStore) GetCredential(ctx context.Context, userID string) (core.Credential, error) {
	data, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return core.Credential{}, fmt.Errorf("credential for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.Credential{}, fmt.Errorf("%w: redis get: %v", core.ErrTransport, err)
	}

	var rc redisCredential
	if err := json.Unmarshal(data, &rc); err != nil {
		return core.Credential{}, fmt.Errorf("decode credential for %s: %w", userID, err)
	}
	return core.Credential{
		UserID:      userID,
		AccessToken: rc.AccessToken,
		Expiry:      rc.Expiry,
		UpdatedAt:   rc.UpdatedAt,
	}, nil
}

func (s *RedisStore) ClearCredential(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", core.ErrTransport, err)
	}
	return nil
}
