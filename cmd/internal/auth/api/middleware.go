package authapi

import (
	"net/http"

	"sonar/cmd/internal/auth/token"
)

// authedHandler is an http handler that additionally receives the resolved
// user.
type authedHandler func(w http.ResponseWriter, r *http.Request, user token.User)

// requireToken authenticates the request's Authorization header values
// before invoking next.
//
// Error mapping follows the header contract:
//   - malformed header (absent, duplicated, or missing the `Token ` prefix)
//     -> 401 with the authority's message
//   - well-formed but unknown key -> 403 "Token presented was not valid"
//   - store failure at any step -> 500
func (h *Handler) requireToken(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.tokens.Authenticate(r.Context(), r.Header.Values("Authorization"))
		if err != nil {
			h.writeAuthError(w, err)
			return
		}
		h.metrics.TokenCheck("ok")
		next(w, r, user)
	}
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case token.IsMalformedRequest(err):
		h.metrics.TokenCheck("malformed")
		writeError(w, http.StatusUnauthorized, "malformed_request", token.Message(err))
	case token.IsInvalidCredential(err):
		h.metrics.TokenCheck("invalid")
		writeError(w, http.StatusForbidden, "invalid_token", "Token presented was not valid")
	default:
		h.metrics.TokenCheck("error")
		h.log.Error("auth.token_check.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
