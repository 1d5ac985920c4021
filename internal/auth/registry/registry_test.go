package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRegistry(client), mr
}

func TestRegistry_RecordAndValidate(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	e := Entry{TokenID: "tok-1", Fingerprint: "fp-1"}
	require.NoError(t, r.Record(ctx, "user-1", e, time.Hour))

	require.NoError(t, r.Validate(ctx, "user-1", "tok-1", "fp-1"))
	require.ErrorIs(t, r.Validate(ctx, "user-1", "tok-1", "fp-wrong"), ErrMismatch)
	require.ErrorIs(t, r.Validate(ctx, "user-1", "tok-wrong", "fp-1"), ErrMismatch)
	require.ErrorIs(t, r.Validate(ctx, "user-2", "tok-1", "fp-1"), ErrNotFound)
}

func TestRegistry_RecordReplacesPrevious(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "old", Fingerprint: "fp-old"}, time.Hour))
	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "new", Fingerprint: "fp-new"}, time.Hour))

	require.ErrorIs(t, r.Validate(ctx, "user-1", "old", "fp-old"), ErrMismatch)
	require.NoError(t, r.Validate(ctx, "user-1", "new", "fp-new"))
}

func TestRegistry_EntryExpires(t *testing.T) {
	r, mr := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "tok", Fingerprint: "fp"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	require.ErrorIs(t, r.Validate(ctx, "user-1", "tok", "fp"), ErrNotFound)
}

func TestRegistry_Rotate(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "old", Fingerprint: "fp-old"}, time.Hour))

	err := r.Rotate(ctx, "user-1", "old", "fp-old", time.Hour, func() (Entry, error) {
		return Entry{TokenID: "new", Fingerprint: "fp-new"}, nil
	})
	require.NoError(t, err)

	// The old token is spent, the new one is current.
	require.ErrorIs(t, r.Validate(ctx, "user-1", "old", "fp-old"), ErrMismatch)
	require.NoError(t, r.Validate(ctx, "user-1", "new", "fp-new"))
}

func TestRegistry_RotateStaleTokenSkipsMint(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "current", Fingerprint: "fp"}, time.Hour))

	minted := false
	err := r.Rotate(ctx, "user-1", "stale", "fp", time.Hour, func() (Entry, error) {
		minted = true
		return Entry{}, nil
	})
	require.ErrorIs(t, err, ErrMismatch)
	require.False(t, minted)

	// The current token survives a failed rotation attempt.
	require.NoError(t, r.Validate(ctx, "user-1", "current", "fp"))
}

func TestRegistry_RotateConcurrentSingleWinner(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "old", Fingerprint: "fp-old"}, time.Hour))

	// Two racers present the same spent token. The WATCH transaction must let
	// exactly one through; a plain read-then-write would let both succeed and
	// each silently invalidate the other's replacement.
	next := [2]Entry{
		{TokenID: "new-a", Fingerprint: "fp-a"},
		{TokenID: "new-b", Fingerprint: "fp-b"},
	}
	errs := make([]error, 2)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = r.Rotate(ctx, "user-1", "old", "fp-old", time.Hour, func() (Entry, error) {
				return next[i], nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var winner, loser int
	switch {
	case errs[0] == nil:
		winner, loser = 0, 1
	case errs[1] == nil:
		winner, loser = 1, 0
	default:
		t.Fatalf("no rotation succeeded: %v / %v", errs[0], errs[1])
	}
	require.ErrorIs(t, errs[loser], ErrMismatch)

	// The registry holds exactly the winner's entry.
	require.NoError(t, r.Validate(ctx, "user-1", next[winner].TokenID, next[winner].Fingerprint))
	require.ErrorIs(t, r.Validate(ctx, "user-1", next[loser].TokenID, next[loser].Fingerprint), ErrMismatch)
	require.ErrorIs(t, r.Validate(ctx, "user-1", "old", "fp-old"), ErrMismatch)
}

func TestRegistry_RotateNoSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	err := r.Rotate(context.Background(), "user-1", "tok", "fp", time.Hour, func() (Entry, error) {
		t.Fatal("mint called without a recorded token")
		return Entry{}, nil
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Revoke(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, "user-1", Entry{TokenID: "tok", Fingerprint: "fp"}, time.Hour))
	require.NoError(t, r.Revoke(ctx, "user-1"))
	require.ErrorIs(t, r.Validate(ctx, "user-1", "tok", "fp"), ErrNotFound)

	// Revoking again is a no-op.
	require.NoError(t, r.Revoke(ctx, "user-1"))
}

func TestStateStore_SingleUse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStateStore(client)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc123", LoginState{Provider: "google", Nonce: "n1"}, 10*time.Minute))

	ls, err := s.Consume(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "google", ls.Provider)
	require.Equal(t, "n1", ls.Nonce)

	_, err = s.Consume(ctx, "abc123")
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStateStore(client)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc123", LoginState{Provider: "github"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := s.Consume(ctx, "abc123")
	require.ErrorIs(t, err, ErrStateNotFound)
}
