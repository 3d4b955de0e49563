package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmfbsub/internal/config"
)

func newFacebookStub(t *testing.T, handler http.HandlerFunc) *FacebookService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	fb := NewFacebookService(&config.Config{AppID: "appid", AppSecret: "appsecret"})
	fb.GraphURL = server.URL
	return fb
}

// signTestRequest builds a signed_request the way Facebook does.
func signTestRequest(t *testing.T, secret string, payload map[string]interface{}) string {
	t.Helper()
	if _, ok := payload["algorithm"]; !ok {
		payload["algorithm"] = "HMAC-SHA256"
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	encoded := base64.RawURLEncoding.EncodeToString(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(encoded))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return sig + "." + encoded
}

func TestCurrentUserWithoutToken(t *testing.T) {
	fb := NewFacebookService(&config.Config{AppID: "appid", AppSecret: "appsecret"})
	user, err := fb.CurrentUser("")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCurrentUser(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "xxxx", r.URL.Query().Get("access_token"))
		io.WriteString(w, `{"id":"7654321","name":"Test User"}`)
	})

	user, err := fb.CurrentUser("xxxx")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "7654321", user.ID)
	assert.Equal(t, "Test User", user.Name)
}

func TestCurrentUserAPIError(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`)
	})

	_, err := fb.CurrentUser("expired")
	assert.Error(t, err)
}

func TestPages(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		io.WriteString(w, `{"data":[{"id":"111","name":"Test Page"},{"id":"222","name":"Other Page"}]}`)
	})

	pages, err := fb.Pages("xxxx")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Test Page", pages[0].Name)
}

func TestGetPage(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/111", r.URL.Path)
		io.WriteString(w, `{"id":"111","name":"Test Page","link":"http://www.facebook.com/testpage","has_added_app":true}`)
	})

	page, err := fb.GetPage("111", "xxxx")
	require.NoError(t, err)
	assert.Equal(t, "Test Page", page.Name)
	assert.True(t, page.HasAddedApp)
	assert.Equal(t, "http://www.facebook.com/testpage", page.Link)
}

func TestAuthURL(t *testing.T) {
	fb := NewFacebookService(&config.Config{AppID: "appid", AppSecret: "appsecret"})
	got := fb.AuthURL("http://example.org/auth/facebook/callback")
	assert.Contains(t, got, "https://www.facebook.com/dialog/oauth?")
	assert.Contains(t, got, "client_id=appid")
	assert.Contains(t, got, "scope=manage_pages%2Coffline_access")
}

func TestExchangeCodeJSON(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		assert.Equal(t, "xyz", r.URL.Query().Get("code"))
		io.WriteString(w, `{"access_token":"fbtoken","token_type":"bearer"}`)
	})

	token, err := fb.ExchangeCode("xyz", "http://example.org/auth/facebook/callback")
	require.NoError(t, err)
	assert.Equal(t, "fbtoken", token)
}

func TestExchangeCodeFormEncoded(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "access_token=fbtoken&expires=5183998")
	})

	token, err := fb.ExchangeCode("xyz", "http://example.org/auth/facebook/callback")
	require.NoError(t, err)
	assert.Equal(t, "fbtoken", token)
}

func TestExchangeCodeError(t *testing.T) {
	fb := newFacebookStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"Invalid verification code.","type":"OAuthException","code":100}}`)
	})

	_, err := fb.ExchangeCode("bad", "http://example.org/auth/facebook/callback")
	assert.Error(t, err)
}

func TestParseSignedRequest(t *testing.T) {
	fb := NewFacebookService(&config.Config{AppID: "appid", AppSecret: "appsecret"})
	raw := signTestRequest(t, "appsecret", map[string]interface{}{
		"user_id": "7654321",
		"page":    map[string]interface{}{"id": "111", "liked": true, "admin": false},
	})

	sr, err := fb.ParseSignedRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, "7654321", sr.UserID)
	assert.Equal(t, "111", sr.PageID())
}

func TestParseSignedRequestBadSignature(t *testing.T) {
	fb := NewFacebookService(&config.Config{AppID: "appid", AppSecret: "appsecret"})
	raw := signTestRequest(t, "wrongsecret", map[string]interface{}{"user_id": "7654321"})

	_, err := fb.ParseSignedRequest(raw)
	assert.Error(t, err)
}

func TestParseSignedRequestMalformed(t *testing.T) {
	fb := NewFacebookService(&config.Config{AppID: "appid", AppSecret: "appsecret"})

	_, err := fb.ParseSignedRequest("notasignedrequest")
	assert.Error(t, err)
}

func TestSignedRequestPageIDNil(t *testing.T) {
	var sr *SignedRequest
	assert.Equal(t, "", sr.PageID())

	sr = &SignedRequest{}
	assert.Equal(t, "", sr.PageID())
}
