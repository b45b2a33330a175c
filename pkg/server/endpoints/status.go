package endpoints

import (
	"net/http"
	"os"

	"github.com/doodlesbykumbi/orgperm/pkg/server"
	"github.com/doodlesbykumbi/orgperm/pkg/server/store"
)

// StatusResponse represents the response from GET /
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the status endpoint
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status (no auth required)
	s.Router.HandleFunc("/", handleStatus(s.HealthStore)).Methods("GET")
}

// RegisterMetricsEndpoint exposes Prometheus metrics when enabled
func RegisterMetricsEndpoint(s *server.Server) {
	if s.Metrics == nil {
		return
	}
	s.Router.Handle("/metrics", s.Metrics.Handler()).Methods("GET")
}

func handleStatus(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("PERMCTL_VERSION")
		if version == "" {
			version = "0.1.0"
		}

		if healthStore != nil {
			if err := healthStore.CheckConnectivity(r.Context()); err != nil {
				respondWithJSON(w, http.StatusServiceUnavailable, StatusResponse{
					Status:  "error",
					Version: version,
					Error:   "database connectivity check failed",
				})
				return
			}
		}

		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok", Version: version})
	}
}
