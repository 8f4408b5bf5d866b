// ABOUTME: HTTP server struct, constructor, and handler wiring for Koveo Gestion.
// ABOUTME: Holds auth dependencies (store, config, blob storage, argon2 semaphore).
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/blob"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/config"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       *store.Store
	cfg         *config.Config
	blobs       blob.Storage
	argon2Sem   chan struct{}
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server wired to the given store and blob storage.
func NewServer(s *store.Store, cfg *config.Config, blobs blob.Storage) *Server {
	sem := make(chan struct{}, cfg.Argon2MaxConcurrent)
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 10 requests per minute, burst of 10.
	rl := newIPRateLimiter(rate.Limit(10.0/60), 10, evictTTL)
	return &Server{
		store:       s,
		cfg:         cfg,
		blobs:       blobs,
		argon2Sem:   sem,
		rateLimiter: rl,
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── Auth sub-router with huma (OpenAPI 3.1), rate-limited per IP ─────────
	authRouter := chi.NewRouter()
	authRouter.Use(srv.authRateLimit())
	authRouter.Use(middleware.RequestSize(1 << 20))
	humaConfig := huma.DefaultConfig("Koveo Gestion API", "0.1.0")
	humaConfig.Info.Description = "Property management API for Quebec residential buildings"
	authAPI := humachi.New(authRouter, humaConfig)
	registerAuthRoutes(authAPI, srv)

	apiRouter := chi.NewRouter()
	apiRouter.Mount("/auth", authRouter)

	// ── Org management (chi, not huma, for per-group RBAC middleware) ─────────
	apiRouter.Route("/orgs", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		// 1 MB body limit — these routes carry small JSON payloads only.
		// Document uploads have their own limit in uploadDocumentHandler.
		r.Use(middleware.RequestSize(1 << 20))
		r.With(srv.RequireAdmin()).Post("/", srv.createOrgHandler)
		r.Get("/", srv.listOrgsHandler)

		r.Route("/{org_id}", func(r chi.Router) {
			r.Use(srv.RequireOrgManager())
			r.Get("/", srv.getOrgHandler)
			r.With(srv.RequireAdmin()).Patch("/", srv.updateOrgHandler)

			// Member management
			r.Route("/members", func(r chi.Router) {
				r.Get("/", srv.listMembersHandler)
				r.With(srv.RequireAdmin()).Post("/{user_id}", srv.addMemberHandler)
				r.With(srv.RequireAdmin()).Delete("/{user_id}", srv.removeMemberHandler)
			})

			// Invitation management
			r.Route("/invitations", func(r chi.Router) {
				r.Post("/", srv.createInvitationHandler)
				r.Get("/", srv.listInvitationsHandler)
				r.Delete("/{id}", srv.cancelInvitationHandler)
			})

			// Property hierarchy
			r.Route("/buildings", func(r chi.Router) {
				r.Post("/", srv.createBuildingHandler)
				r.Get("/", srv.listBuildingsHandler)
				r.Route("/{building_id}", func(r chi.Router) {
					r.Get("/", srv.getBuildingHandler)
					r.Patch("/", srv.updateBuildingHandler)
					r.Delete("/", srv.deleteBuildingHandler)

					r.Route("/residences", func(r chi.Router) {
						r.Post("/", srv.createResidenceHandler)
						r.Get("/", srv.listResidencesHandler)
						r.Route("/{residence_id}", func(r chi.Router) {
							r.Delete("/", srv.deleteResidenceHandler)
							r.Get("/members", srv.listResidenceMembersHandler)
							r.Post("/members/{user_id}", srv.addResidenceMemberHandler)
							r.Delete("/members/{user_id}", srv.removeResidenceMemberHandler)
						})
					})
				})
			})
		})
	})

	// ── Visibility-resolved resources ─────────────────────────────────────────
	apiRouter.Route("/documents", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Post("/", srv.uploadDocumentHandler)
		r.Get("/", srv.listDocumentsHandler)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", srv.getDocumentHandler)
			r.Get("/download", srv.downloadDocumentHandler)
			r.Patch("/", srv.updateDocumentHandler)
			r.Delete("/", srv.deleteDocumentHandler)
		})
	})

	apiRouter.Route("/bills", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Use(middleware.RequestSize(1 << 20))
		r.Post("/", srv.createBillHandler)
		r.Get("/", srv.listBillsHandler)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", srv.getBillHandler)
			r.Patch("/", srv.updateBillHandler)
			r.Delete("/", srv.deleteBillHandler)
		})
	})

	apiRouter.Route("/feature-requests", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Use(middleware.RequestSize(1 << 20))
		r.Post("/", srv.createFeatureRequestHandler)
		r.Get("/", srv.listFeatureRequestsHandler)
		r.With(srv.RequireAdmin()).Patch("/{id}", srv.triageFeatureRequestHandler)
		r.Delete("/{id}", srv.deleteFeatureRequestHandler)
	})

	// ── Platform administration ───────────────────────────────────────────────
	apiRouter.Route("/admin", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Use(srv.RequireAdmin())
		r.Patch("/users/{user_id}/role", srv.updateUserRoleHandler)
	})

	r.Mount("/api/v1", apiRouter)

	return r
}

// acquireArgon2 tries to acquire the argon2 semaphore. Returns false if all
// slots are in use — the caller should return 503 immediately (do NOT block).
func (srv *Server) acquireArgon2() bool {
	select {
	case srv.argon2Sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (srv *Server) releaseArgon2() { <-srv.argon2Sem }

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
		}
	}
}
