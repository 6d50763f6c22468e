package authapi

import (
	"errors"
	"log/slog"
	"net/http"

	"sonar/cmd/internal/account"
	"sonar/cmd/internal/auth/token"
)

const maxBodyBytes = 1 << 16

// Handler wires HTTP auth endpoints to the account service and the token
// authority.
type Handler struct {
	log      *slog.Logger
	accounts *account.Service
	tokens   *token.Authority
	metrics  *Metrics
}

// NewHandler constructs an auth Handler. metrics may be nil.
func NewHandler(log *slog.Logger, accounts *account.Service, tokens *token.Authority, metrics *Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		accounts: accounts,
		tokens:   tokens,
		metrics:  metrics,
	}
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/users", h.handleCreateUser)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/logout", h.requireToken(h.handleLogout))
	mux.HandleFunc("/me", h.requireToken(h.handleMe))
}

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RealName string `json:"real_name,omitempty"`
	Blurb    string `json:"blurb,omitempty"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	RealName string `json:"real_name"`
	Blurb    string `json:"blurb"`
}

type loginResponse struct {
	User userResponse `json:"user"`
	Key  string       `json:"key"`
}

func toUserResponse(u token.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		RealName: u.RealName,
		Blurb:    u.Blurb,
	}
}

// ---- handlers ----

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req userRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.RealName, req.Blurb)
	switch {
	case err == nil:
		h.metrics.Registration("ok")
		writeJSON(w, http.StatusCreated, toUserResponse(user))
	case errors.Is(err, account.ErrUsernameTaken):
		h.metrics.Registration("rejected")
		writeError(w, http.StatusBadRequest, "username_taken", "Username already in use; pick another")
	case errors.Is(err, account.ErrPasswordTooShort):
		h.metrics.Registration("rejected")
		writeError(w, http.StatusBadRequest, "password_too_short", "Password too short")
	case errors.Is(err, account.ErrInvalidUsername):
		h.metrics.Registration("rejected")
		writeError(w, http.StatusBadRequest, "invalid_username", "Username is required")
	default:
		h.metrics.Registration("error")
		h.log.Error("auth.register.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Failed to connect to backing database")
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req userRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrBadLogin) {
			h.metrics.Login("invalid")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.metrics.Login("error")
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	key, err := h.tokens.CreateFor(r.Context(), user.ID)
	if err != nil {
		h.metrics.Login("error")
		h.log.Error("auth.login.issue_token.fail", "err", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.metrics.Login("ok")
	writeJSON(w, http.StatusOK, loginResponse{User: toUserResponse(user), Key: key})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request, user token.User) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.tokens.InvalidateFor(r.Context(), user.ID); err != nil {
		h.log.Error("auth.logout.fail", "err", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request, user token.User) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
