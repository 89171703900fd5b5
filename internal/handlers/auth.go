package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

const SessionHeader = "X-Session-ID"

type loginRequest struct {
	AccessCode string `json:"accessCode"`
	SessionID  string `json:"sessionId"`
}

type sessionResponse struct {
	Success   bool       `json:"success"`
	SessionID string     `json:"sessionId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// sessionID reads the session token from the sessionId query parameter,
// the X-Session-ID header or the session cookie, in that order.
func (h *Handler) sessionID(r *http.Request) string {
	if id := r.URL.Query().Get("sessionId"); id != "" {
		return id
	}
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(h.cfg.Auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without a live authenticated session.
// The response does not say whether the session is unknown, expired or
// unauthenticated.
func (h *Handler) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.sessions.IsValid(r.Context(), h.sessionID(r)) {
			utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthRequired, "Authentication required.")
			return
		}
		next(w, r)
	}
}

// CreateSession issues a fresh unauthenticated session.
// POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		logger.LogError("Session: create failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Could not create session.")
		return
	}

	h.setSessionCookie(w, r, sess.ID)
	utils.WriteJSON(w, http.StatusCreated, sessionResponse{
		Success:   true,
		SessionID: sess.ID,
		ExpiresAt: &sess.ExpiresAt,
	})
}

// Login checks the access code and authenticates the caller's session. A
// caller without a live session gets a new one on success.
// POST /api/login, POST /api/access-codes/validate
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}
	if req.AccessCode == "" {
		utils.WriteValidationError(w, "Access code is required.", map[string]string{"accessCode": "accessCode is required"})
		return
	}

	ctx := r.Context()
	sid := req.SessionID
	if sid == "" {
		sid = h.sessionID(r)
	}

	if sid != "" && h.sessions.Exists(ctx, sid) {
		authed, err := h.sessions.Authenticate(ctx, sid, req.AccessCode)
		if err != nil {
			logger.LogError("Session: authenticate failed: %v", err)
			utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Could not verify access code.")
			return
		}
		if !authed {
			h.rejectLogin(w, r)
			return
		}
		h.acceptLogin(w, r, sid)
		return
	}

	sess, err := h.sessions.Create(ctx)
	if err != nil {
		logger.LogError("Session: create failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Could not create session.")
		return
	}
	authed, err := h.sessions.Authenticate(ctx, sess.ID, req.AccessCode)
	if err != nil || !authed {
		if invErr := h.sessions.Invalidate(ctx, sess.ID); invErr != nil {
			logger.LogWarn("Session: cleanup after failed login: %v", invErr)
		}
		if err != nil {
			logger.LogError("Session: authenticate failed: %v", err)
			utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Could not verify access code.")
			return
		}
		h.rejectLogin(w, r)
		return
	}
	h.acceptLogin(w, r, sess.ID)
}

func (h *Handler) decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, bool) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4096)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
			return req, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
			return req, false
		}
		req.AccessCode = r.PostForm.Get("accessCode")
		if req.AccessCode == "" {
			req.AccessCode = r.PostForm.Get("access_code")
		}
		req.SessionID = r.PostForm.Get("sessionId")
	}
	req.AccessCode = strings.TrimSpace(req.AccessCode)
	return req, true
}

func (h *Handler) acceptLogin(w http.ResponseWriter, r *http.Request, sid string) {
	h.setSessionCookie(w, r, sid)
	expires := time.Now().Add(h.sessions.TTL())
	utils.WriteJSON(w, http.StatusOK, sessionResponse{
		Success:   true,
		SessionID: sid,
		ExpiresAt: &expires,
	})
}

func (h *Handler) rejectLogin(w http.ResponseWriter, r *http.Request) {
	logger.LogWarn("Session: rejected access code from %s", utils.GetRealIP(r))
	if h.failureDelay > 0 {
		time.Sleep(h.failureDelay)
	}
	utils.WriteJSON(w, http.StatusUnauthorized, sessionResponse{
		Success: false,
		Message: "Invalid access code.",
	})
}

// Logout invalidates the caller's session and clears the cookie.
// GET|POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Invalidate(r.Context(), h.sessionID(r)); err != nil {
		logger.LogError("Session: invalidate failed: %v", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// SessionStatus reports whether the caller is authenticated.
// GET /api/session
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]bool{
		"authenticated": h.sessions.IsValid(r.Context(), h.sessionID(r)),
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL().Seconds()),
	})
}
