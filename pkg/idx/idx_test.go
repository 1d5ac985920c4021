package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndSortable(t *testing.T) {
	a := New()
	b := New()

	require.NotEqual(t, a, b)
	require.Less(t, a.String(), b.String(), "ids generated later sort later")
}

func TestParse(t *testing.T) {
	id := New()

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse("not-a-ulid")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTime(t *testing.T) {
	before := time.Now().UTC().Truncate(time.Millisecond)
	id := New()

	ts := id.Time()
	require.False(t, ts.Before(before))
	require.WithinDuration(t, time.Now().UTC(), ts, time.Second)

	require.True(t, Zero.Time().IsZero())
}
