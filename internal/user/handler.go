package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apierr"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
)

// ClaimsFunc extracts the authenticated claims placed on the request by the
// auth middleware.
type ClaimsFunc func(r *http.Request) (*auth.Claims, bool)

// Handler exposes HTTP endpoints for user operations (signup / login / me).
type Handler struct {
	svc    *UserService
	claims ClaimsFunc
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, claims ClaimsFunc, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, claims: claims, logger: logger}
}

// SignupRequest request body for signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		h.writeError(w, r, apierr.BadRequest("invalid payload"))
		return
	}
	u, err := h.svc.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, u)
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeError(w, r, apierr.BadRequest("invalid payload"))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(r)
	if !ok {
		h.writeError(w, r, &auth.Error{Kind: auth.KindUnauthorized})
		return
	}
	u, err := h.svc.Me(r.Context(), claims)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError converts err and logs the internal cause for server-side failures.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierr.From(err)
	if apiErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Errorw("request failed", "path", r.URL.Path, "kind", apiErr.Kind().String(), "err", err)
	} else {
		h.logger.Debugw("request rejected", "path", r.URL.Path, "kind", apiErr.Kind().String(), "err", err)
	}
	apiErr.Write(w)
}
