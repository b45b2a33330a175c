package endpoints

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
	"github.com/doodlesbykumbi/orgperm/pkg/config"
	"github.com/doodlesbykumbi/orgperm/pkg/metrics"
	"github.com/doodlesbykumbi/orgperm/pkg/server"
	"github.com/doodlesbykumbi/orgperm/pkg/server/middleware"
)

var testSecret = []byte("endpoints-test-secret-0123456789")

type testServer struct {
	*server.Server
	svc  *MockPermissionService
	auth *middleware.JWTAuthenticator
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	svc := &MockPermissionService{}
	health := &MockHealthStore{}
	health.On("CheckConnectivity").Return(nil).Maybe()
	auth := middleware.NewJWTAuthenticator(testSecret, time.Hour)

	srv := server.NewServer(svc, health, cfg, nil, "127.0.0.1", "0").
		WithMetrics(metrics.New()).
		WithJWT(auth).
		WithRateLimiter(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	RegisterAll(srv)

	return &testServer{Server: srv, svc: svc, auth: auth}
}

func (s *testServer) token(t *testing.T, org string) string {
	t.Helper()
	token, _, err := s.auth.Issue("operator", org)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, org string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if org != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, org))
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// captureAudit redirects the audit log for the duration of the test.
func captureAudit(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	audit.SetEnabled(true)
	audit.DefaultLogger.SetWriter(&buf)
	t.Cleanup(func() { audit.DefaultLogger.SetWriter(os.Stdout) })
	return &buf
}

func jsonBody(s string) io.Reader {
	return bytes.NewBufferString(s)
}
