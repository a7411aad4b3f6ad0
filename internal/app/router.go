package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atrium-hms/atrium/internal/audit"
	"github.com/atrium-hms/atrium/internal/auth"
	"github.com/atrium-hms/atrium/internal/billing"
	"github.com/atrium-hms/atrium/internal/bookings"
	"github.com/atrium-hms/atrium/internal/guests"
	"github.com/atrium-hms/atrium/internal/ledger"
	"github.com/atrium-hms/atrium/internal/observability"
	"github.com/atrium-hms/atrium/internal/rbac"
	"github.com/atrium-hms/atrium/internal/reports"
	"github.com/atrium-hms/atrium/internal/requests"
	"github.com/atrium-hms/atrium/internal/rooms"
	"github.com/atrium-hms/atrium/internal/shared"
	"github.com/atrium-hms/atrium/internal/users"
	"github.com/atrium-hms/atrium/internal/vendors"
	"github.com/atrium-hms/atrium/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler     *auth.Handler
	RoomsHandler    *rooms.Handler
	GuestsHandler   *guests.Handler
	BookingsHandler *bookings.Handler
	BillingHandler  *billing.Handler
	LedgerHandler   *ledger.Handler
	VendorsHandler  *vendors.Handler
	RequestsHandler *requests.Handler
	ReportsHandler  *reports.Handler
	AuditHandler    *audit.Handler
	UsersHandler    *users.Handler
	RBACHandler     *rbac.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Atrium defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		params.RoomsHandler.MountRoutes(r)
		params.GuestsHandler.MountRoutes(r)
		params.BookingsHandler.MountRoutes(r)
		params.BillingHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
		params.VendorsHandler.MountRoutes(r)
		params.RequestsHandler.MountRoutes(r)
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
