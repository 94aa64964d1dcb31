package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	Attendance AttendanceHandler
	Advance    AdvanceHandler
	Payroll    PayrollHandler
	Employee   EmployeeHandler
	Dashboard  DashboardHandler
	Events     EventsHandler
}

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot send headers; the stream carries its own token
		r.Get("/events", h.Events.Stream)

		// Requires authentication and a company
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireTenant)

			r.Post("/events/token", h.Events.GetSSEToken)

			r.Route("/attendance", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceWrite))
					r.Post("/events", h.Attendance.UpsertEvent)
					r.Post("/events/bulk", h.Attendance.BulkUpsert)
					r.Delete("/events/{employeeID}/{date}", h.Attendance.DeleteEvent)
					r.Put("/uploaded-totals", h.Attendance.UpsertUploadedTotals)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceViewAll))
					r.Get("/summary/{employeeID}", h.Attendance.GetSummary)
					r.Get("/working-days/{employeeID}", h.Attendance.GetWorkingDays)
				})
			})

			r.Route("/advances", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionAdvanceManage)).Post("/", h.Advance.Create)
				r.With(middleware.RequirePermission(user.PermissionAdvanceView)).Get("/employees/{employeeID}", h.Advance.ListByEmployee)
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Route("/periods", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", h.Payroll.ListPeriods)

					r.Route("/{year}/{month}", func(r chi.Router) {
						r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/salaries", h.Payroll.ListSalaries)
						r.With(middleware.RequirePermission(user.PermissionPayrollCalculate)).Post("/calculate", h.Payroll.Calculate)
						r.With(middleware.RequirePermission(user.PermissionPayrollLock)).Post("/lock", h.Payroll.LockPeriod)
						r.With(middleware.RequirePermission(user.PermissionPayrollCalculate)).Delete("/", h.Payroll.DeletePeriod)
					})
				})

				r.Route("/salaries", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollPay)).Post("/mark-paid", h.Payroll.MarkPaid)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionPayrollCalculate))
						r.Put("/{id}/advance-deduction", h.Payroll.UpdateAdvanceDeduction)
						r.Put("/{id}/incentive", h.Payroll.UpdateIncentive)
					})
				})
			})

			r.Route("/employees", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionEmployeeViewAll)).Get("/", h.Employee.List)
				r.With(middleware.RequirePermission(user.PermissionEmployeeManage)).Put("/{id}/status", h.Employee.SetStatus)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/attendance", h.Dashboard.GetAttendance)
			})
		})
	})
	return r
}
