package endpoints

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
	"github.com/doodlesbykumbi/orgperm/pkg/server"
	"github.com/doodlesbykumbi/orgperm/pkg/server/middleware"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterMetricsEndpoint(srv)
	RegisterPermissionEndpoints(srv)
}

// organizationRouter returns the subrouter for /organizations/{org}. Every
// route on it requires a token issued for that organization.
func organizationRouter(srv *server.Server) *mux.Router {
	r := srv.Router.PathPrefix("/organizations/{org}").Subrouter()
	if srv.JWTMiddleware != nil {
		r.Use(srv.JWTMiddleware.Middleware)
	} else {
		r.Use(denyAll)
	}
	r.Use(requireOrganization(srv))
	if srv.RateLimiter != nil {
		r.Use(srv.RateLimiter.Middleware)
	}
	return r
}

// denyAll guards the API when no token secret is configured.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Authentication is not configured"))
	})
}

func requireOrganization(srv *server.Server) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := middleware.IdentityFrom(r.Context())
			if !ok {
				http.Error(w, "Unable to determine identity", http.StatusUnauthorized)
				return
			}
			org := pathVar(r, "org")
			if id.Organization != org {
				audit.Log(audit.AuthenticateEvent{
					Subject:        id.Subject,
					OrganizationID: org,
					ClientIP:       clientIP(r, srv.Config()),
					ErrorMessage:   "token issued for " + id.Organization,
				})
				respondWithError(w, http.StatusForbidden, "token is not valid for this organization")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
