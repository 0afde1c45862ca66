package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{
			name:  "store and retrieve string",
			key:   "gemini:analysis:leaf-rust",
			value: "test-value",
		},
		{
			name: "store and retrieve disease details",
			key:  "gemini:analysis:powdery-mildew",
			value: domain.DiseaseDetails{
				DiseaseName: "Powdery Mildew",
				Description: "White powdery growth on leaves.",
				Causes:      []string{"High humidity"},
				Severity:    domain.SeverityMedium,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, cache.Set(ctx, tt.key, tt.value, time.Minute))

			got, err := cache.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache()

	_, err := cache.Get(context.Background(), "non-existent-key")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))

	clock.Advance(59 * time.Minute)
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	clock.Advance(time.Minute)
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss, "entry at exactly TTL age is stale")

	// Stale entries stay in the map until overwritten
	assert.Equal(t, 1, cache.Size())

	require.NoError(t, cache.Set(ctx, "k", "fresh", time.Hour))
	got, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.Equal(t, 1, cache.Size())
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	key := "delete-test"
	require.NoError(t, cache.Set(ctx, key, "value", time.Minute))

	_, err := cache.Get(ctx, key)
	require.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, key))

	_, err = cache.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_Exists(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "exists-test")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, cache.Set(ctx, "exists-test", "value", time.Minute))

	exists, err = cache.Exists(ctx, "exists-test")
	require.NoError(t, err)
	assert.True(t, exists)

	clock.Advance(2 * time.Minute)

	exists, err = cache.Exists(ctx, "exists-test")
	require.NoError(t, err)
	assert.False(t, exists, "expired entry should not exist")
}

func TestMemoryCache_SweepRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "v", time.Second))
	require.NoError(t, cache.Set(ctx, "long", "v", time.Hour))
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool { return cache.Size() == 1 }, time.Second, 5*time.Millisecond)

	exists, err := cache.Exists(ctx, "long")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryCache_SweepUsesClockSetAfterInterval(t *testing.T) {
	clock := newFakeClock()
	cache := NewMemoryCache(WithSweepInterval(5*time.Millisecond), WithClock(clock.Now))
	defer cache.Close()
	ctx := context.Background()

	assert.Equal(t, 5*time.Millisecond, cache.sweep)

	require.NoError(t, cache.Set(ctx, "short", "v", time.Second))
	// real time never reaches the expiry, only the injected clock does
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, cache.Size())

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return cache.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Set(ctx, string(rune('a'+i)), i, time.Minute))
	}
	require.Equal(t, 5, cache.Size())

	cache.Clear()

	assert.Equal(t, 0, cache.Size())
	for i := 0; i < 5; i++ {
		_, err := cache.Get(ctx, string(rune('a'+i)))
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			assert.NoError(t, cache.Set(ctx, key, id, time.Minute))
			_, err := cache.Get(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, cache.Size())
}
