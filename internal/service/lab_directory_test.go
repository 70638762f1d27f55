package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository/memstore"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestLabIDCacheServesFreshThenRefreshes(t *testing.T) {
	store := memstore.New()
	store.SeedLabs(models.Lab{ID: "lab-a", Active: true}, models.Lab{ID: "lab-b", Active: false})
	calls := 0
	store.SetFault(func(op, _ string) error {
		if op == memstore.OpListLabs {
			calls++
		}
		return nil
	})
	clock := &fakeClock{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewLabIDCache(store.Labs(), nil, LabCacheOptions{TTL: time.Minute, CentralLabID: models.CentralStoreLabID}, clock.Now, nil)

	ids, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a"}, ids)

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	store.SeedLabs(models.Lab{ID: "lab-c", Active: true})
	clock.Advance(2 * time.Minute)
	ok, err := cache.Contains(context.Background(), "lab-c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, calls)

	ok, err = cache.Contains(context.Background(), "lab-b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cache.Contains(context.Background(), models.CentralStoreLabID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLabIDCacheServesStaleOnError(t *testing.T) {
	store := memstore.New()
	store.SeedLabs(models.Lab{ID: "lab-a", Active: true})
	clock := &fakeClock{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewLabIDCache(store.Labs(), nil, LabCacheOptions{TTL: time.Minute, ServeStale: true}, clock.Now, nil)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	store.SetFault(func(op, _ string) error {
		if op == memstore.OpListLabs {
			return errors.New("directory offline")
		}
		return nil
	})
	clock.Advance(5 * time.Minute)

	ids, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a"}, ids)

	_, err = cache.Refresh(context.Background())
	assert.Error(t, err)
}

func TestLabIDCacheFailsWithoutStaleData(t *testing.T) {
	store := memstore.New()
	store.SetFault(func(op, _ string) error { return errors.New("directory offline") })
	cache := NewLabIDCache(store.Labs(), nil, LabCacheOptions{ServeStale: true}, nil, nil)

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	ok, err := cache.Contains(context.Background(), "lab-a")
	assert.Error(t, err)
	assert.False(t, ok)
}

type mapCache struct {
	values map[string][]string
}

func (m *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]string)) = v
	return nil
}

func (m *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.values[key] = value.([]string)
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestLabIDCacheUsesSharedTier(t *testing.T) {
	store := memstore.New()
	store.SeedLabs(models.Lab{ID: "lab-a", Active: true})
	shared := &mapCache{values: map[string][]string{}}
	cacheSvc := NewCacheService(shared, nil, time.Minute, nil, true)

	first := NewLabIDCache(store.Labs(), cacheSvc, LabCacheOptions{}, nil, nil)
	_, err := first.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a"}, shared.values[sharedLabCacheKey])

	store.SetFault(func(op, _ string) error { return errors.New("directory offline") })
	second := NewLabIDCache(store.Labs(), cacheSvc, LabCacheOptions{}, nil, nil)
	ids, err := second.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a"}, ids)
}

type failingCache struct{ mapCache }

func (m *failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis unavailable")
}

func TestLabIDCacheLogsSharedWriteFailure(t *testing.T) {
	store := memstore.New()
	store.SeedLabs(models.Lab{ID: "lab-a", Active: true})
	core, logs := observer.New(zapcore.WarnLevel)
	shared := &failingCache{mapCache{values: map[string][]string{}}}
	cacheSvc := NewCacheService(shared, nil, time.Minute, nil, true)

	cache := NewLabIDCache(store.Labs(), cacheSvc, LabCacheOptions{}, nil, zap.New(core))
	ids, err := cache.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a"}, ids)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish lab ids to shared cache").Len())
}
