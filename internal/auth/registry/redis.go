package registry

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// rotateRetries bounds the optimistic-lock retry loop. Contending rotations
// for the same subject are mutually exclusive anyway, so retries only absorb
// unrelated WATCH invalidations.
const rotateRetries = 3

type RedisRegistry struct {
	client *redis.Client
	prefix string
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: "refresh:",
	}
}

func (r *RedisRegistry) key(subject string) string {
	return r.prefix + subject
}

func encodeEntry(e Entry) string {
	return e.TokenID + ":" + e.Fingerprint
}

func decodeEntry(val string) (Entry, error) {
	id, fp, ok := strings.Cut(val, ":")
	if !ok || id == "" || fp == "" {
		return Entry{}, fmt.Errorf("registry: malformed entry %q", val)
	}
	return Entry{TokenID: id, Fingerprint: fp}, nil
}

func matches(e Entry, tokenID, fingerprint string) bool {
	idOK := subtle.ConstantTimeCompare([]byte(e.TokenID), []byte(tokenID)) == 1
	fpOK := subtle.ConstantTimeCompare([]byte(e.Fingerprint), []byte(fingerprint)) == 1
	return idOK && fpOK
}

func (r *RedisRegistry) Record(ctx context.Context, subject string, e Entry, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(subject), encodeEntry(e), ttl).Err()
}

func (r *RedisRegistry) Validate(ctx context.Context, subject, tokenID, fingerprint string) error {
	val, err := r.client.Get(ctx, r.key(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	current, err := decodeEntry(val)
	if err != nil {
		return err
	}
	if !matches(current, tokenID, fingerprint) {
		return ErrMismatch
	}
	return nil
}

// Rotate runs validate-mint-replace under WATCH so a concurrent rotation of
// the same subject invalidates the transaction instead of double-spending
// the token.
func (r *RedisRegistry) Rotate(ctx context.Context, subject, tokenID, fingerprint string, ttl time.Duration, mint func() (Entry, error)) error {
	key := r.key(subject)

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		current, err := decodeEntry(val)
		if err != nil {
			return err
		}
		if !matches(current, tokenID, fingerprint) {
			return ErrMismatch
		}

		next, err := mint()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encodeEntry(next), ttl)
			return nil
		})
		return err
	}

	for i := 0; i < rotateRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	// The entry changed under us on every attempt, so the presented token is
	// no longer the current one.
	return ErrMismatch
}

func (r *RedisRegistry) Revoke(ctx context.Context, subject string) error {
	return r.client.Del(ctx, r.key(subject)).Err()
}
