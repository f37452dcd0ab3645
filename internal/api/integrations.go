package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"taskquest/app"
	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	stateCookie    = "taskquest_oauth_state"
	stateCookieTTL = 10 * time.Minute
)

// integrationsRouter serves the OAuth connect flow and external item sync
type integrationsRouter struct {
	router *chi.Mux
	svc    *app.IntegrationService
}

// NewIntegrationsRouter mounts the integration endpoints on a chi router.
// Paths are relative, the caller strips its mount prefix.
func NewIntegrationsRouter(svc *app.IntegrationService) http.Handler {
	r := &integrationsRouter{
		router: chi.NewRouter(),
		svc:    svc,
	}
	r.router.Use(middleware.Recoverer)
	r.router.Use(middleware.RequestID)

	r.router.Get("/providers", r.handleProviders)
	r.router.Route("/{provider}", func(pr chi.Router) {
		pr.Use(requireUserHeader)
		pr.Get("/authorize", r.handleAuthorize)
		pr.Get("/callback", r.handleCallback)
		pr.Post("/sync", r.handleSync)
	})
	return r.router
}

type userCtxKey struct{}

func requireUserHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user, err := core.ParseUserID(req.Header.Get(UserHeader))
		if err != nil {
			writeJSONError(w, req, errors.Unauthenticated())
			return
		}
		ctx := context.WithValue(req.Context(), userCtxKey{}, user)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func userFromRequest(req *http.Request) core.UserID {
	user, _ := req.Context().Value(userCtxKey{}).(core.UserID)
	return user
}

func (r *integrationsRouter) handleProviders(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": r.svc.Providers()})
}

func (r *integrationsRouter) handleAuthorize(w http.ResponseWriter, req *http.Request) {
	provider := strings.ToLower(chi.URLParam(req, "provider"))
	url, state, err := r.svc.Authorize(userFromRequest(req), provider, req.URL.Query().Get("redirect_uri"))
	if err != nil {
		writeJSONError(w, req, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"url": url, "state": state})
}

func (r *integrationsRouter) handleCallback(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	if msg := q.Get("error"); msg != "" {
		writeJSONError(w, req, errors.InvalidInput("provider denied access: "+msg))
		return
	}
	cookie, err := req.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		writeJSONError(w, req, errors.InvalidInput("oauth state mismatch"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	provider := chi.URLParam(req, "provider")
	token, err := r.svc.Connect(req.Context(), userFromRequest(req), provider, q.Get("code"), q.Get("redirect_uri"))
	if err != nil {
		writeJSONError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":   token.Provider,
		"scope":      token.Scope,
		"expires_at": token.ExpiresAt,
	})
}

type syncRequest struct {
	Items []ports.ExternalItem `json:"items"`
}

func (r *integrationsRouter) handleSync(w http.ResponseWriter, req *http.Request) {
	var body syncRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSONError(w, req, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	provider := strings.ToLower(chi.URLParam(req, "provider"))
	res, err := r.svc.Sync(req.Context(), userFromRequest(req), provider, body.Items)
	if err != nil {
		writeJSONError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, req *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		log.WithError(err).WithFields(log.Fields{
			"path":       req.URL.Path,
			"request_id": middleware.GetReqID(req.Context()),
		}).Error("Integration request error")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: errors.GetCode(err)})
}
