package api

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cmfbsub/internal/config"
	"cmfbsub/internal/database"
	"cmfbsub/internal/services"
)

// Session keys for the Facebook identity.
const (
	sessionUID   = "fb_uid"
	sessionToken = "fb_token"
	sessionError = "fb_error"
)

// authFailureMessage is shown after a declined OAuth dialog.
const authFailureMessage = "To use this application you must permit access to your basic information."

// Handler carries the dependencies the HTTP handlers need.
type Handler struct {
	cfg   *config.Config
	store *database.Store
	fb    *services.FacebookService
	cs    *services.CreateSendService
}

// NewHandler creates the handler set
func NewHandler(cfg *config.Config, store *database.Store, fb *services.FacebookService, cs *services.CreateSendService) *Handler {
	return &Handler{cfg: cfg, store: store, fb: fb, cs: cs}
}

// token returns the Facebook access token stored in the session, or "".
func (h *Handler) token(c *gin.Context) string {
	if v, ok := sessions.Default(c).Get(sessionToken).(string); ok {
		return v
	}
	return ""
}

// uid returns the Facebook user id stored in the session, or "".
func (h *Handler) uid(c *gin.Context) string {
	if v, ok := sessions.Default(c).Get(sessionUID).(string); ok {
		return v
	}
	return ""
}

// clearSession removes the Facebook identity, token and error flag.
func clearSession(sess sessions.Session) {
	sess.Delete(sessionUID)
	sess.Delete(sessionToken)
	sess.Delete(sessionError)
	_ = sess.Save()
}

// signedRequest decodes the signed_request parameter Facebook attaches to
// canvas requests. Returns nil when absent or invalid.
func (h *Handler) signedRequest(c *gin.Context) *services.SignedRequest {
	raw := c.PostForm("signed_request")
	if raw == "" {
		raw = c.Query("signed_request")
	}
	if raw == "" {
		return nil
	}
	sr, err := h.fb.ParseSignedRequest(raw)
	if err != nil {
		return nil
	}
	return sr
}

// checkAuth gates a route on a Facebook session. Without a token the client
// is redirected to the OAuth start; when the session user does not match the
// user asserted by the embedding context, the session is cleared first and
// the client is redirected to re-authenticate. Returns false when the
// request was redirected.
func (h *Handler) checkAuth(c *gin.Context) bool {
	if h.token(c) == "" {
		c.Redirect(http.StatusFound, "/auth/facebook")
		c.Abort()
		return false
	}
	if sr := h.signedRequest(c); sr != nil && sr.UserID != "" && sr.UserID != h.uid(c) {
		clearSession(sessions.Default(c))
		c.Redirect(http.StatusFound, "/auth/facebook")
		c.Abort()
		return false
	}
	return true
}

// oauthRedirectURI is the callback URL registered with the OAuth dialog.
// The dialog and the token exchange must use the identical value.
func (h *Handler) oauthRedirectURI(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/auth/facebook/callback"
}
