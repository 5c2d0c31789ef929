package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr())
	require.NoError(t, err)
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func TestAside_CachesAfterFirstFetch(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			dest.Name = "ada"
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, ProfileKey("u1"), &first, ProfileTTL, fetch(&first)))
	var second cachedThing
	require.NoError(t, Aside(ctx, ProfileKey("u1"), &second, ProfileTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "ada", second.Name)
	assert.True(t, mr.Exists("profile:u1"))
	assert.InDelta(t, ProfileTTL.Seconds(), mr.TTL("profile:u1").Seconds(), 1)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), ProfileKey("u2"), &dest, ProfileTTL, func() error {
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("profile:u2"))
}

func TestAside_RedisDownFallsThrough(t *testing.T) {
	mr := setupMiniredis(t)
	mr.Close()

	var dest cachedThing
	err := Aside(context.Background(), ProfileKey("u3"), &dest, time.Minute, func() error {
		dest.Name = "from-db"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from-db", dest.Name)
}

func TestInvalidate(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, ProfileKey("u4"), cachedThing{Name: "x"}, time.Minute))
	InvalidateProfile(ctx, "u4")
	assert.False(t, mr.Exists("profile:u4"))
}

func TestAside_InvalidationDuringFetchSkipsStore(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	var stale int64
	err := Aside(ctx, UnreadCountKey("u5"), &stale, UnreadCountTTL, func() error {
		calls++
		stale = 0
		// A notification lands after the count query but before the fill.
		InvalidateUnreadCount(ctx, "u5")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("notifications:unread:u5"))

	var fresh int64
	require.NoError(t, Aside(ctx, UnreadCountKey("u5"), &fresh, UnreadCountTTL, func() error {
		calls++
		fresh = 1
		return nil
	}))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "1", mustGet(t, mr, "notifications:unread:u5"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	found, err := GetJSON(context.Background(), "k", &cachedThing{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(context.Background(), "k", cachedThing{}, time.Minute))
}
