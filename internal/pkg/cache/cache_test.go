package cache

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedTotals struct {
	Present decimal.Decimal  `json:"present"`
	Advance *decimal.Decimal `json:"advance"`
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	t0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return t0 }
	key := Key{TenantID: "company-1", Resource: ResourceAttendance, Sub: "summary:e1:2024-03"}

	require.NoError(t, store.Set(ctx, key, cachedTotals{Present: decimal.RequireFromString("20.5")}, time.Minute))

	var got cachedTotals
	found, err := store.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Present.Equal(decimal.RequireFromString("20.5")))
	assert.Nil(t, got.Advance)

	store.now = func() time.Time { return t0.Add(time.Minute) }
	found, err = store.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_InvalidateResource_TenantScoped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := Key{TenantID: "company-1", Resource: ResourceDashboard, Sub: "2024-03:"}
	b := Key{TenantID: "company-1", Resource: ResourceDashboard, Sub: "2024-03:Sales"}
	other := Key{TenantID: "company-2", Resource: ResourceDashboard, Sub: "2024-03:"}
	directory := Key{TenantID: "company-1", Resource: ResourceDirectory, Sub: ":false"}
	for _, k := range []Key{a, b, other, directory} {
		require.NoError(t, store.Set(ctx, k, 1, time.Minute))
	}

	require.NoError(t, store.InvalidateResource(ctx, "company-1", ResourceDashboard))

	assert.Equal(t, 2, store.Len())
	var v int
	found, _ := store.Get(ctx, other, &v)
	assert.True(t, found)
	found, _ = store.Get(ctx, a, &v)
	assert.False(t, found)
}

func TestGetOrLoad_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{TenantID: "company-1", Resource: ResourcePeriodOverview, Sub: "all"}
	var loads atomic.Int32
	load := func(context.Context) ([]string, error) {
		loads.Add(1)
		return []string{"2024-03"}, nil
	}

	v1, err := GetOrLoad(ctx, store, key, time.Minute, load)
	require.NoError(t, err)
	v2, err := GetOrLoad(ctx, store, key, time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), loads.Load())

	require.NoError(t, NewInvalidator(store).Invalidate(ctx, "company-1", MutationSalary))
	_, err = GetOrLoad(ctx, store, key, time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestGetOrLoad_ErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{TenantID: "company-1", Resource: ResourceDirectory, Sub: "x"}
	boom := errors.New("database unavailable")

	_, err := GetOrLoad(ctx, store, key, time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())

	v, err := GetOrLoad(ctx, nil, key, time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestInvalidator_Table(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, r := range []Resource{ResourceAttendance, ResourceDashboard, ResourcePeriodOverview, ResourcePayrollOverview, ResourceDirectory} {
		require.NoError(t, store.Set(ctx, Key{TenantID: "company-1", Resource: r, Sub: "k"}, 1, time.Minute))
	}

	require.NoError(t, NewInvalidator(store).Invalidate(ctx, "company-1", MutationAdvance))
	assert.Equal(t, 4, store.Len())

	require.NoError(t, NewInvalidator(store).Invalidate(ctx, "company-1", MutationAttendance))
	assert.Equal(t, 1, store.Len())

	err := NewInvalidator(store).Invalidate(ctx, "company-1", Mutation("payslip"), MutationEmployeeStatus)
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	store := NewRedisStore(rdb)
	tenantID := "test-" + time.Now().Format("150405.000000000")
	key := Key{TenantID: tenantID, Resource: ResourcePayrollOverview, Sub: "salaries:2024-03"}

	require.NoError(t, store.Set(ctx, key, cachedTotals{Present: decimal.NewFromInt(28)}, time.Minute))
	var got cachedTotals
	found, err := store.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Present.Equal(decimal.NewFromInt(28)))

	require.NoError(t, NewInvalidator(store).Invalidate(ctx, tenantID, MutationAdvance))
	found, err = store.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}
