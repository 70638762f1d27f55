package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 3, cfg.Allocation.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Allocation.RetryBackoff)
	assert.Equal(t, 2, cfg.Allocation.GraceDays)
	assert.Equal(t, "central-store", cfg.Allocation.CentralStoreLabID)
	assert.Equal(t, 5*time.Minute, cfg.LabDirectory.CacheTTL)
	assert.True(t, cfg.LabDirectory.ServeStale)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ALLOCATION_RETRY_ATTEMPTS", "5")
	t.Setenv("LAB_CACHE_TTL", "90s")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("JWT_AUDIENCE", "labstock, admin-portal")
	t.Setenv("STORE_SEED_LABS", "lab-chem-1,lab-bio-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Allocation.RetryAttempts)
	assert.Equal(t, 90*time.Second, cfg.LabDirectory.CacheTTL)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"labstock", "admin-portal"}, cfg.JWT.Audience)
	assert.Equal(t, []string{"lab-chem-1", "lab-bio-1"}, cfg.Store.SeedLabs)
}

func TestAllocationLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, AllocationConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, AllocationConfig{}.Location())
}
