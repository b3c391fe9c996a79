package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/comercio-app/comercio/internal/auth"
	"github.com/comercio-app/comercio/internal/backup"
	"github.com/comercio-app/comercio/internal/catalog"
	"github.com/comercio-app/comercio/internal/contacts"
	"github.com/comercio-app/comercio/internal/dashboard"
	"github.com/comercio-app/comercio/internal/expenses"
	"github.com/comercio-app/comercio/internal/observability"
	"github.com/comercio-app/comercio/internal/orders"
	"github.com/comercio-app/comercio/internal/realtime"
	"github.com/comercio-app/comercio/internal/recyclebin"
	"github.com/comercio-app/comercio/internal/shared"
	"github.com/comercio-app/comercio/internal/stock"
	"github.com/comercio-app/comercio/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	CatalogHandler    *catalog.Handler
	ContactsHandler   *contacts.Handler
	OrdersHandler     *orders.Handler
	StockHandler      *stock.Handler
	ExpensesHandler   *expenses.Handler
	RecycleBinHandler *recyclebin.Handler
	DashboardHandler  *dashboard.Handler
	BackupHandler     *backup.Handler
	RealtimeHandler   *realtime.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi router.
func NewRouter(params RouterParams) http.Handler {
	mwConfig := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(mwConfig) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		params.AuthHandler.MountRoutes(api)

		api.Group(func(priv chi.Router) {
			priv.Use(params.AuthHandler.RequireAuth)

			params.CatalogHandler.MountRoutes(priv)
			params.ContactsHandler.MountRoutes(priv)
			params.OrdersHandler.MountRoutes(priv)
			params.StockHandler.MountRoutes(priv)
			params.ExpensesHandler.MountRoutes(priv)
			params.RecycleBinHandler.MountRoutes(priv)
			params.DashboardHandler.MountRoutes(priv)
			params.BackupHandler.MountRoutes(priv)
			if params.JobHandler != nil {
				priv.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	if params.RealtimeHandler == nil {
		return r
	}

	// The SSE stream lives outside the timeout-bound stack: long-lived
	// connections must not be cut by the request timeout.
	events := chi.NewRouter()
	events.Use(chimw.RealIP, chimw.RequestID, SessionMiddleware(mwConfig), chimw.Recoverer)
	events.Use(params.AuthHandler.RequireAuth)
	events.Get("/", params.RealtimeHandler.Stream())

	root := chi.NewRouter()
	root.Mount("/api/v1/events", events)
	root.Mount("/", r)
	return root
}
