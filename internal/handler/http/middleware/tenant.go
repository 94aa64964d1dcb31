package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/tenant"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
)

// RequireTenant rejects callers whose token carries no company_id. Users
// still in onboarding have none.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := tenant.Require(CompanyID(r)); err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
