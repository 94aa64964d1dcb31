package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Mutation is a kind of write that makes cached views stale.
type Mutation string

const (
	MutationAttendance     Mutation = "attendance"
	MutationAdvance        Mutation = "advance"
	MutationSalary         Mutation = "salary"
	MutationEmployeeStatus Mutation = "employee_status"
)

// InvalidationTable lists, per mutation, the resources that must be dropped
// synchronously before the write is acknowledged.
//
//	mutation         | resources
//	-----------------+-----------------------------------------------------------
//	attendance       | attendance, dashboard, period_overview
//	advance          | payroll_overview
//	salary           | payroll_overview, period_overview, dashboard
//	employee_status  | directory, dashboard, period_overview, payroll_overview
var InvalidationTable = map[Mutation][]Resource{
	MutationAttendance:     {ResourceAttendance, ResourceDashboard, ResourcePeriodOverview},
	MutationAdvance:        {ResourcePayrollOverview},
	MutationSalary:         {ResourcePayrollOverview, ResourcePeriodOverview, ResourceDashboard},
	MutationEmployeeStatus: {ResourceDirectory, ResourceDashboard, ResourcePeriodOverview, ResourcePayrollOverview},
}

type Invalidator struct {
	store Store
}

func NewInvalidator(store Store) *Invalidator {
	return &Invalidator{store: store}
}

// Invalidate drops every resource listed for the mutations. All resources are
// attempted even when one fails; the joined error is returned.
func (i *Invalidator) Invalidate(ctx context.Context, tenantID string, mutations ...Mutation) error {
	if i == nil || i.store == nil {
		return nil
	}

	seen := make(map[Resource]struct{})
	var errs []error
	for _, m := range mutations {
		resources, ok := InvalidationTable[m]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown cache mutation %q", m))
			continue
		}
		for _, r := range resources {
			if _, done := seen[r]; done {
				continue
			}
			seen[r] = struct{}{}
			if err := i.store.InvalidateResource(ctx, tenantID, r); err != nil {
				slog.Error("cache invalidation failed", "tenant_id", tenantID, "resource", r, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
