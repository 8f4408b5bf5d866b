// ABOUTME: RBAC middleware: RequireAdmin for platform-wide routes and
// ABOUTME: RequireOrgManager for org-scoped route trees. Admin bypasses both.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
)

// RequireAdmin returns a middleware that rejects everyone but platform
// admins. Must run after RequireAuthenticated.
func (srv *Server) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userIDFrom(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := srv.store.GetUserByID(r.Context(), userID)
			if err != nil {
				internalError(w, r, "rbac: get user", err)
				return
			}
			if user == nil || access.TierOf(user.Role) != access.TierAdmin {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrgManager returns a middleware that verifies the authenticated user
// may manage the org in the URL ({org_id}): either a platform admin, or a
// manager-tier user holding membership in that org. On success it injects
// ctxOrgID into the request context.
//
// Must run after RequireAuthenticated.
func (srv *Server) RequireOrgManager() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userIDFrom(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
			if err != nil {
				http.Error(w, "invalid org_id", http.StatusBadRequest)
				return
			}

			user, err := srv.store.GetUserByID(r.Context(), userID)
			if err != nil {
				internalError(w, r, "rbac: get user", err)
				return
			}
			if user == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			switch access.TierOf(user.Role) {
			case access.TierAdmin:
				// Admin manages every org.
			case access.TierManager:
				member, err := srv.store.IsOrgMember(r.Context(), orgID, userID)
				if err != nil {
					internalError(w, r, "rbac: org membership", err)
					return
				}
				if !member {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ctxOrgID, orgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
