package http

import (
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

// AuthHandler serves session issue and teardown
type AuthHandler struct {
	auth interfaces.Auth
}

type createSessionRequest struct {
	IDToken string `json:"idToken"`
}

type signupCheckRequest struct {
	Email string `json:"email"`
}

// HandleCreateSession exchanges a verified identity token for a session.
// The session ID and secret are set as HttpOnly cookies.
func (h *AuthHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, goerr.New("authentication is not configured"), http.StatusServiceUnavailable)
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	user, err := h.auth.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err, http.StatusUnauthorized)
		return
	}

	session, err := h.auth.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	setSessionCookies(w, r, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       user,
		"expires_at": session.ExpiresAt,
	})
}

// HandleSignupCheck rejects registration attempts for reserved addresses
// before the account is created upstream
func (h *AuthHandler) HandleSignupCheck(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, goerr.New("authentication is not configured"), http.StatusServiceUnavailable)
		return
	}

	var req signupCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := h.auth.ValidateSignupEmail(req.Email); err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": true})
}

// HandleLogout deletes the session and clears its cookies
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session_id"); err == nil && h.auth != nil {
		if session, err := h.auth.ValidateSession(r.Context(), cookie.Value, sessionSecretFrom(r)); err == nil {
			if err := h.auth.Logout(r.Context(), session.ID); err != nil {
				writeError(w, err, http.StatusInternalServerError)
				return
			}
		}
	}

	clearSessionCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMe returns the authenticated caller's claims
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := model.GetAuthContext(r.Context())
	if !ok || authCtx.UserID == "" {
		writeError(w, goerr.New("no authenticated user"), http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, authCtx)
}

func sessionSecretFrom(r *http.Request) string {
	if cookie, err := r.Cookie("session_secret"); err == nil {
		return cookie.Value
	}
	return ""
}

func setSessionCookies(w http.ResponseWriter, r *http.Request, session *model.Session) {
	secure := r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    string(session.ID),
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "session_secret",
		Value:    string(session.Secret),
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	secure := r.TLS != nil
	for _, name := range []string{"session_id", "session_secret"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
