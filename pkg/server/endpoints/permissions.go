package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
	"github.com/doodlesbykumbi/orgperm/pkg/config"
	"github.com/doodlesbykumbi/orgperm/pkg/permission"
	"github.com/doodlesbykumbi/orgperm/pkg/render"
	"github.com/doodlesbykumbi/orgperm/pkg/server"
	"github.com/doodlesbykumbi/orgperm/pkg/server/middleware"
)

const maxBodyBytes = 1 << 20

// CatalogResponse is the body of GET /organizations/{org}/catalog
type CatalogResponse struct {
	Organization string                  `json:"organization"`
	Groups       []permission.SuiteGroup `json:"groups"`
}

// SaveRequest is the body of PUT /organizations/{org}/matrix/{type}/{id}.
// An empty list clears the target's grants; a missing one is rejected.
type SaveRequest struct {
	Selected []string `json:"selected" validate:"required,dive,required,max=128"`
}

// EffectiveResponse is the body of GET .../users/{id}/effective
type EffectiveResponse struct {
	Organization string           `json:"organization"`
	User         string           `json:"user"`
	Permissions  permission.IDSet `json:"permissions"`
}

// CheckResponse is the body of GET .../users/{id}/check
type CheckResponse struct {
	User       string `json:"user"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// RegisterPermissionEndpoints registers the catalog and matrix endpoints
func RegisterPermissionEndpoints(s *server.Server) {
	r := organizationRouter(s)
	svc := s.Permissions

	r.HandleFunc("/catalog", handleCatalog(svc)).Methods("GET")

	// The .html route must come first: {id} would also match "x.html".
	r.HandleFunc("/matrix/{type}/{id}.html", handleMatrixHTML(svc)).Methods("GET")
	r.HandleFunc("/matrix/{type}/{id}", handleLoadMatrix(svc)).Methods("GET")
	r.HandleFunc("/matrix/{type}/{id}", handleSaveMatrix(svc, s.Config, s.Logger)).Methods("PUT")

	r.HandleFunc("/users/{id}/effective", handleEffective(svc)).Methods("GET")
	r.HandleFunc("/users/{id}/check", handleCheck(svc, s.Config)).Methods("GET")
}

// targetFromRequest builds the target named by the route. A department's
// parent role comes from ?parent_role=.
func targetFromRequest(r *http.Request) (permission.Target, error) {
	targetType, err := permission.TargetTypeString(pathVar(r, "type"))
	if err != nil {
		return permission.Target{}, fmt.Errorf("%w: %s", permission.ErrInvalidTarget, err)
	}
	target := permission.Target{
		Type:           targetType,
		ID:             pathVar(r, "id"),
		OrganizationID: pathVar(r, "org"),
	}
	if targetType == permission.TargetDepartment {
		target.ParentRoleID = r.URL.Query().Get("parent_role")
	}
	return target, nil
}

func handleCatalog(svc server.PermissionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org := pathVar(r, "org")
		groups, err := svc.Catalog(r.Context(), org)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, CatalogResponse{Organization: org, Groups: groups})
	}
}

func handleLoadMatrix(svc server.PermissionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := targetFromRequest(r)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}
		matrix, err := svc.Load(r.Context(), target)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, matrix)
	}
}

func handleMatrixHTML(svc server.PermissionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := targetFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		matrix, err := svc.Load(r.Context(), target)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}
		page, err := render.Page(matrix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}

func handleSaveMatrix(svc server.PermissionService, cfg func() *config.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operator, _ := middleware.IdentityFrom(r.Context())
		target, err := targetFromRequest(r)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}

		event := audit.MatrixSaveEvent{
			OperatorID:     operator.Subject,
			ClientIP:       clientIP(r, cfg()),
			RequestID:      middleware.RequestIDFrom(r.Context()),
			OrganizationID: target.OrganizationID,
			TargetType:     target.Type.String(),
			TargetID:       target.ID,
		}
		fail := func(code int, msg string) {
			event.ErrorMessage = msg
			audit.Log(event)
			respondWithError(w, code, msg)
		}

		var req SaveRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			fail(http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := validate.Struct(req); err != nil {
			fail(http.StatusBadRequest, validationMessage(err))
			return
		}

		result, err := svc.Save(r.Context(), target, req.Selected)
		if err != nil {
			event.ErrorMessage = err.Error()
			audit.Log(event)
			respondWithPermissionError(w, err)
			return
		}

		event.Success = true
		event.Granted = len(result.Granted)
		event.Denied = len(result.Denied)
		audit.Log(event)
		logger.Info("matrix saved",
			zap.String("operator", operator.Subject),
			zap.Stringer("target", target),
			zap.String("request_id", event.RequestID),
		)
		respondWithJSON(w, http.StatusOK, result)
	}
}

func handleEffective(svc server.PermissionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org := pathVar(r, "org")
		user := pathVar(r, "id")
		ids, err := svc.Effective(r.Context(), org, user)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, EffectiveResponse{Organization: org, User: user, Permissions: ids})
	}
}

func handleCheck(svc server.PermissionService, cfg func() *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org := pathVar(r, "org")
		user := pathVar(r, "id")
		key := r.URL.Query().Get("permission")
		if key == "" {
			respondWithError(w, http.StatusBadRequest, "permission is required")
			return
		}

		allowed, err := svc.Check(r.Context(), org, user, key)
		if err != nil {
			respondWithPermissionError(w, err)
			return
		}

		operator, _ := middleware.IdentityFrom(r.Context())
		audit.Log(audit.CheckEvent{
			OperatorID:     operator.Subject,
			ClientIP:       clientIP(r, cfg()),
			OrganizationID: org,
			UserID:         user,
			PermissionKey:  key,
			Allowed:        allowed,
		})
		respondWithJSON(w, http.StatusOK, CheckResponse{User: user, Permission: key, Allowed: allowed})
	}
}
