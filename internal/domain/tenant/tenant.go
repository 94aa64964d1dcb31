package tenant

import (
	"errors"
	"strings"
)

var ErrTenantRequired = errors.New("tenant is required")

// Require returns ErrTenantRequired when no tenant was resolved for the call.
func Require(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrTenantRequired
	}
	return nil
}
