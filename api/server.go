/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a reverse proxy
  3. hlog:       Request-scoped zerolog logger + access log line
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Latency histogram per route pattern
  6. CORS:       Cross-origin requests for the till frontend

ROUTE GROUPS:
  /api/transactions/*   Transaction log, CSV/XLSX export, CSV import
  /api/stats/*          Daily, category, product, leaderboard, trend, summary
  /api/sessions/*       Session lifecycle, linking, session stats
  /api/products/*       Menu catalog
  /api/demos/*          Demo data sets
  /healthz              Liveness
  /metrics              Prometheus
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves the built frontend from web/dist/ when present.
  Falls back to index.html for client-side routing.

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(h.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.Checkout)
			r.Post("/clear", h.ClearTransactions)
			r.Get("/export.csv", h.ExportCSV)
			r.Get("/export.xlsx", h.ExportXLSX)
			r.Post("/import", h.ImportCSV)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Statistics routes
		r.Route("/stats", func(r chi.Router) {
			r.Get("/daily", h.DailyStats)
			r.Get("/categories", h.CategoryStats)
			r.Get("/products", h.ProductStats)
			r.Get("/leaderboard", h.Leaderboard)
			r.Get("/trend", h.Trend)
			r.Get("/summary", h.Summary)
			r.Get("/overview", h.Overview)
		})

		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Get("/active", h.GetActiveSession)
			r.Post("/overlap", h.CheckOverlap)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Put("/", h.UpdateSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/pause", h.PauseSession)
				r.Post("/resume", h.ResumeSession)
				r.Post("/complete", h.CompleteSession)
				r.Post("/clear-dates", h.ClearSessionDates)
				r.Post("/link", h.LinkSession)
				r.Get("/stats", h.SessionStats)
				r.Get("/transactions", h.SessionTransactions)
			})
		})

		// Product catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/export", h.ExportProducts)
			r.Post("/import", h.ImportProducts)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		// Demo data routes
		r.Route("/demos", func(r chi.Router) {
			r.Get("/", h.ListDemos)
			r.Get("/current", h.GetCurrentDemo)
			r.Post("/load", h.LoadDemo)
		})
	})

	// Serve static files (frontend build)
	// First try ./web/dist, then next to the executable
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(landingPage))
		})
	}

	return r
}

const landingPage = `<!DOCTYPE html>
<html>
<head><title>Kermes POS Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Kermes POS Ledger API</h1>
<p>No frontend build found in web/dist. The JSON API is available under /api.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/transactions">/api/transactions</a> - Transaction log</li>
<li><a href="/api/sessions">/api/sessions</a> - Sessions</li>
<li><a href="/api/stats/daily">/api/stats/daily</a> - Daily totals</li>
<li><a href="/api/products">/api/products</a> - Menu</li>
<li><a href="/api/demos">/api/demos</a> - Demo data sets</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`
