package finance

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJSONLoaderOutlivesCancelledCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	loaderErr := make(chan error, 1)
	loader := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		loaderErr <- ctx.Err()
		return map[string]int{"total": 7}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var out map[string]int
		done <- cache.FetchJSON(ctx, "finance:test:1", &out, loader)
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.NoError(t, <-loaderErr, "loader context is not tied to the caller")
	require.Eventually(t, func() bool { return mr.Exists("finance:test:1") }, time.Second, 5*time.Millisecond)

	var out map[string]int
	require.NoError(t, cache.FetchJSON(context.Background(), "finance:test:1", &out, func(context.Context) (any, error) {
		t.Fatal("value should be served from redis")
		return nil, nil
	}))
	assert.Equal(t, 7, out["total"])
}
