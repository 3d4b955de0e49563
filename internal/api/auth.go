package api

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cmfbsub/pkg/logging"
)

// AuthStart redirects to the Facebook OAuth dialog.
// GET /auth/facebook
func (h *Handler) AuthStart(c *gin.Context) {
	c.Redirect(http.StatusFound, h.fb.AuthURL(h.oauthRedirectURI(c)))
}

// AuthCallback finishes the OAuth flow: exchanges the code for a token,
// resolves the authenticated user and stores both in the session.
// GET /auth/facebook/callback
func (h *Handler) AuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, "/auth/failure")
		return
	}

	token, err := h.fb.ExchangeCode(code, h.oauthRedirectURI(c))
	if err != nil {
		logging.Errorf("OAuth code exchange failed: %v", err)
		c.Redirect(http.StatusFound, "/auth/failure")
		return
	}

	user, err := h.fb.CurrentUser(token)
	if err != nil || user == nil {
		logging.Errorf("Failed to resolve authenticated user: %v", err)
		c.Redirect(http.StatusFound, "/auth/failure")
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionUID, user.ID)
	sess.Set(sessionToken, token)
	sess.Delete(sessionError)
	_ = sess.Save()

	c.Redirect(http.StatusFound, "/")
}

// AuthFailure clears the session and records why authentication is needed.
// GET /auth/failure
func (h *Handler) AuthFailure(c *gin.Context) {
	sess := sessions.Default(c)
	clearSession(sess)
	sess.Set(sessionError, authFailureMessage)
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/")
}

// Logout clears the session.
// GET /logout
func (h *Handler) Logout(c *gin.Context) {
	clearSession(sessions.Default(c))
	c.Redirect(http.StatusFound, "/")
}

// Deauthorize handles the Facebook deauthorization callback. All accounts
// stored for the reported user are removed, cascading to their forms.
// Always answers 200, even when nothing was deleted.
// GET /ondeauth
func (h *Handler) Deauthorize(c *gin.Context) {
	if sr := h.signedRequest(c); sr != nil && sr.UserID != "" {
		if err := h.store.DeleteAccountsByUserID(sr.UserID); err != nil {
			logging.Errorf("Failed to delete accounts for user %s: %v", sr.UserID, err)
		}
	}
	c.Status(http.StatusOK)
}
