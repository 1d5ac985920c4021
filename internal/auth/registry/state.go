package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound is returned when a login state is unknown, expired or was
// already consumed.
var ErrStateNotFound = errors.New("registry: login state not found")

// LoginState is the server-side half of an in-flight OAuth authorization,
// keyed by the opaque state parameter round-tripped through the provider.
type LoginState struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce,omitempty"`
}

// StateStore holds pending OAuth login states with single-use semantics.
type StateStore interface {
	Put(ctx context.Context, state string, ls LoginState, ttl time.Duration) error
	// Consume returns and deletes the state so it cannot be replayed.
	Consume(ctx context.Context, state string) (LoginState, error)
}

type RedisStateStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		prefix: "oauth:state:",
	}
}

func (s *RedisStateStore) Put(ctx context.Context, state string, ls LoginState, ttl time.Duration) error {
	data, err := json.Marshal(ls)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+state, data, ttl).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (LoginState, error) {
	val, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return LoginState{}, ErrStateNotFound
	}
	if err != nil {
		return LoginState{}, err
	}

	var ls LoginState
	if err := json.Unmarshal([]byte(val), &ls); err != nil {
		return LoginState{}, err
	}
	return ls, nil
}
