package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Resource names a family of cached read views.
type Resource string

const (
	ResourceAttendance      Resource = "attendance"
	ResourceDashboard       Resource = "dashboard"
	ResourcePeriodOverview  Resource = "period_overview"
	ResourcePayrollOverview Resource = "payroll_overview"
	ResourceDirectory       Resource = "directory"
)

// Key identifies one cached view. Sub distinguishes variants of the same
// resource, e.g. a department filter on the dashboard.
type Key struct {
	TenantID string
	Resource Resource
	Sub      string
}

func (k Key) String() string {
	return fmt.Sprintf("hris:%s:%s:%s", k.TenantID, k.Resource, k.Sub)
}

// IndexKey is the set that tracks every key written for a (tenant, resource).
func IndexKey(tenantID string, resource Resource) string {
	return fmt.Sprintf("hris:%s:%s:_keys", tenantID, resource)
}

// Store is a TTL key-value store for read views.
type Store interface {
	Get(ctx context.Context, key Key, dest interface{}) (bool, error)
	Set(ctx context.Context, key Key, value interface{}, ttl time.Duration) error
	// InvalidateResource drops every cached key of the resource for a tenant.
	InvalidateResource(ctx context.Context, tenantID string, resource Resource) error
}

var fills singleflight.Group

// GetOrLoad returns the cached value for key or fills it from load. Cache
// failures are logged and never fail the read.
func GetOrLoad[T any](ctx context.Context, store Store, key Key, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if store != nil {
		found, err := store.Get(ctx, key, &cached)
		if err != nil {
			slog.Warn("cache read failed", "key", key.String(), "error", err)
		} else if found {
			return cached, nil
		}
	}

	v, err, _ := fills.Do(key.String(), func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return loaded, err
		}
		if store != nil {
			if err := store.Set(ctx, key, loaded, ttl); err != nil {
				slog.Warn("cache write failed", "key", key.String(), "error", err)
			}
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
