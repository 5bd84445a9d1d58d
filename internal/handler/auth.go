package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/greyfiles/loyalty/internal/model"
	"github.com/greyfiles/loyalty/internal/store"
)

const sessionCookieName = "loyalty_session"

// AuthHandler covers sign-up, login, and logout for both brand and
// customer principals.
type AuthHandler struct {
	brandStore    *store.BrandStore
	customerStore *store.CustomerStore
	sessionStore  *store.SessionStore
	logger        *slog.Logger
}

func NewAuthHandler(bs *store.BrandStore, cs *store.CustomerStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{brandStore: bs, customerStore: cs, sessionStore: ss, logger: logger}
}

type brandSignupRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignupBrand(w http.ResponseWriter, r *http.Request) {
	var req brandSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	brand, err := h.brandStore.Register(r.Context(),
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Address),
		strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("brand registered", "brand_id", brand.ID)
	writeJSON(w, http.StatusCreated, brand)
}

type customerSignupRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignupCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	customer, err := h.customerStore.Register(r.Context(),
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone),
		strings.TrimSpace(req.Address), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("customer registered", "customer_id", customer.ID)
	writeJSON(w, http.StatusCreated, customer)
}

type loginRequest struct {
	Kind     string `json:"kind"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var principalID int64
	switch req.Kind {
	case model.PrincipalBrand:
		brand, err := h.brandStore.VerifyPassword(r.Context(), req.Username, req.Password)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if brand == nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		principalID = brand.ID
	case model.PrincipalCustomer:
		customer, err := h.customerStore.VerifyPassword(r.Context(), req.Username, req.Password)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if customer == nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		principalID = customer.ID
	default:
		writeError(w, http.StatusBadRequest, "kind must be brand or customer")
		return
	}

	sess, err := h.sessionStore.Create(r.Context(), req.Kind, principalID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"kind": req.Kind, "id": principalID})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if sess, err := h.sessionStore.GetByToken(r.Context(), cookie.Value); err == nil && sess != nil {
			if err := h.sessionStore.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Warn("delete session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
