package navigation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/navcache/nav"
)

// PrincipalFunc extracts the principal of a request.
type PrincipalFunc func(r *http.Request) (nav.Principal, error)

// InvalidateRequest is the body of POST /v1/navigation/invalidate. The
// first non-empty selector wins, in field order.
type InvalidateRequest struct {
	Pattern  string `json:"pattern,omitempty"`
	Tag      string `json:"tag,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// InvalidateResponse reports how many trees an invalidation removed.
type InvalidateResponse struct {
	Removed int `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var (
	errEmptySelector = errors.New("navigation: one of pattern, tag, user_id, tenant_id, role is required")
	errAdminRequired = errors.New("navigation: system administrator required")
)

// RegisterHandlers mounts the navigation endpoints on mux. The stats,
// invalidations and invalidate endpoints require a system administrator:
// requests without a principal get 401, other principals get 403.
//
//	GET  /v1/navigation?menu=<id>
//	GET  /v1/navigation/access?node=<id>&menu=<id>
//	GET  /v1/navigation/stats
//	GET  /v1/navigation/invalidations
//	POST /v1/navigation/invalidate
func (s *Service) RegisterHandlers(mux *http.ServeMux, principal PrincipalFunc) {
	mux.HandleFunc("GET /v1/navigation", s.resolveHandler(principal))
	mux.HandleFunc("GET /v1/navigation/access", s.accessHandler(principal))
	mux.HandleFunc("GET /v1/navigation/stats", adminOnly(principal, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Statistics())
	}))
	mux.HandleFunc("GET /v1/navigation/invalidations", adminOnly(principal, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.History())
	}))
	mux.HandleFunc("POST /v1/navigation/invalidate", adminOnly(principal, s.invalidateHandler))
}

func adminOnly(principal PrincipalFunc, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if !p.SystemAdmin {
			writeError(w, http.StatusForbidden, errAdminRequired)
			return
		}
		next(w, r)
	}
}

func (s *Service) resolveHandler(principal PrincipalFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		res, err := s.Resolve(r.Context(), p, r.URL.Query().Get("menu"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Service) accessHandler(principal PrincipalFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		q := r.URL.Query()
		allowed, err := s.CanAccess(r.Context(), p, q.Get("node"), q.Get("menu"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
	}
}

func (s *Service) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "requested over http"
	}

	ctx := r.Context()
	var n int
	switch {
	case req.Pattern != "":
		n = s.Invalidate(ctx, req.Pattern, reason)
	case req.Tag != "":
		n = s.InvalidateTag(ctx, req.Tag, reason)
	case req.UserID != "":
		n = s.OnPermissionsChanged(ctx, req.UserID, req.TenantID)
	case req.TenantID != "":
		n = s.InvalidateTenant(ctx, req.TenantID)
	case req.Role != "":
		n = s.InvalidateRole(ctx, req.Role)
	default:
		writeError(w, http.StatusBadRequest, errEmptySelector)
		return
	}
	writeJSON(w, http.StatusOK, InvalidateResponse{Removed: n})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoNavigation), errors.Is(err, ErrMenuNotFound), errors.Is(err, ErrNodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
