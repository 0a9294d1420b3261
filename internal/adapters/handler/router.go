package handler

import (
	"net/http"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth         *AuthHandler
	Registration *RegistrationHandler
	Patients     *PatientHandler
	Catalog      *CatalogHandler
	Plans        *PlanHandler
	Chat         *ChatHandler
	Health       *HealthHandler
}

// NewRouter registers all routes. Each route is instrumented under its
// pattern so path parameters do not explode metric cardinality.
func NewRouter(h Handlers, auth *middleware.SessionMiddleware, collector *metrics.Collector, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, next http.Handler) {
		mux.Handle(pattern, collector.Instrument(pattern, next))
	}
	fn := func(f http.HandlerFunc) http.Handler { return f }

	// Health endpoints (OpenShift compatible)
	handle("GET /health", fn(h.Health.Health))
	handle("GET /health/ready", fn(h.Health.Ready))
	handle("GET /health/live", fn(h.Health.Live))
	if collector != nil {
		mux.Handle("GET /metrics", collector.Handler())
	}

	// Authentication
	handle("POST /patient/login", fn(h.Auth.PatientLogin))
	handle("POST /staff/login", fn(h.Auth.StaffLogin))
	handle("GET /auth/google/login", fn(h.Auth.GoogleLogin))
	handle("GET /auth/google/callback", fn(h.Auth.GoogleCallback))
	handle("POST /staff/register", fn(h.Registration.Register))
	handle("POST /logout", auth.RequireSession(fn(h.Auth.Logout)))
	handle("GET /me", auth.RequireSession(fn(h.Auth.Me)))

	// Patient portal
	handle("GET /patient/treatment-plan", auth.RequirePatient(fn(h.Plans.PatientPlan)))
	handle("GET /patient/chat", auth.RequirePatient(fn(h.Chat.PatientTranscript)))
	handle("POST /api/chat", auth.RequireSession(fn(h.Chat.Chat)))

	// Staff portal
	handle("GET /staff/patients", auth.RequireStaff(fn(h.Patients.List)))
	handle("POST /staff/patients", auth.RequireStaff(fn(h.Patients.Create)))
	handle("GET /staff/patients/{id}", auth.RequireStaff(fn(h.Patients.Get)))
	handle("POST /staff/patients/{id}/passcode", auth.RequireStaff(fn(h.Patients.RefreshPasscode)))
	handle("GET /staff/patients/{id}/treatment-plan", auth.RequireStaff(fn(h.Plans.StaffPlan)))
	handle("POST /staff/patients/{id}/treatment-plan", auth.RequireStaff(fn(h.Plans.Create)))
	handle("PUT /staff/treatment-plans/{id}", auth.RequireStaff(fn(h.Plans.Save)))
	handle("GET /staff/patients/{id}/chat", auth.RequireStaff(fn(h.Chat.StaffTranscript)))
	handle("GET /staff/patients/{id}/summaries", auth.RequireStaff(fn(h.Chat.Summaries)))
	handle("POST /staff/patients/{id}/summaries", auth.RequireStaff(fn(h.Chat.GenerateSummary)))

	handle("GET /staff/treatment-items", auth.RequireStaff(fn(h.Catalog.List)))
	handle("POST /staff/treatment-items", auth.RequireStaff(fn(h.Catalog.Create)))
	handle("DELETE /staff/treatment-items/{id}", auth.RequireStaff(fn(h.Catalog.Delete)))
	handle("POST /staff/treatment-items/{id}/toggle", auth.RequireStaff(fn(h.Catalog.Toggle)))
	handle("POST /staff/treatment-items/import", auth.RequireStaff(fn(h.Catalog.Import)))
	handle("GET /staff/treatment-items/export", auth.RequireStaff(fn(h.Catalog.Export)))
	handle("GET /staff/treatment-items/template", auth.RequireStaff(fn(h.Catalog.Template)))

	// Administration
	handle("GET /admin/staff", auth.RequireAdmin(fn(h.Registration.Approved)))
	handle("GET /admin/staff/pending", auth.RequireAdmin(fn(h.Registration.Pending)))
	handle("POST /admin/staff/{id}/approve", auth.RequireAdmin(fn(h.Registration.Approve)))
	handle("POST /admin/staff/{id}/reject", auth.RequireAdmin(fn(h.Registration.Reject)))

	return middleware.CORSMiddleware(allowedOrigins)(mux)
}
