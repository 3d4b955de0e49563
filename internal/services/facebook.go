package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cmfbsub/internal/config"
	"cmfbsub/pkg/logging"
)

// oauthScope is what the settings flow needs: page administration plus a
// token that outlives the browser session.
const oauthScope = "manage_pages,offline_access"

// FacebookService talks to the Facebook Graph API and builds OAuth URLs.
type FacebookService struct {
	AppID     string
	AppSecret string

	// GraphURL and DialogURL are overridable for tests.
	GraphURL  string
	DialogURL string

	client *http.Client
}

// NewFacebookService creates a Graph API client for the configured app
func NewFacebookService(cfg *config.Config) *FacebookService {
	return &FacebookService{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		GraphURL:  "https://graph.facebook.com/v2.2",
		DialogURL: "https://www.facebook.com/dialog/oauth",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// User is the authenticated Facebook user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Page is a Facebook Page the user administers.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Link        string `json:"link"`
	HasAddedApp bool   `json:"has_added_app"`
}

// CurrentUser resolves "me" for an access token. A missing token yields
// (nil, nil): the caller treats that as "not signed in", not a failure.
func (s *FacebookService) CurrentUser(token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	var user User
	endpoint := fmt.Sprintf("%s/me?access_token=%s", s.GraphURL, url.QueryEscape(token))
	if err := s.get(endpoint, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("incomplete user data from Facebook")
	}
	return &user, nil
}

type pageList struct {
	Data []Page `json:"data"`
}

// Pages returns the pages the token's user administers.
func (s *FacebookService) Pages(token string) ([]Page, error) {
	var pages pageList
	endpoint := fmt.Sprintf("%s/me/accounts?access_token=%s", s.GraphURL, url.QueryEscape(token))
	if err := s.get(endpoint, &pages); err != nil {
		return nil, err
	}
	return pages.Data, nil
}

// GetPage fetches page metadata, including whether the app tab is installed.
func (s *FacebookService) GetPage(pageID, token string) (*Page, error) {
	var page Page
	endpoint := fmt.Sprintf("%s/%s?fields=id,name,link,has_added_app&access_token=%s",
		s.GraphURL, url.PathEscape(pageID), url.QueryEscape(token))
	if err := s.get(endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AuthURL builds the OAuth dialog URL the unauthenticated flow redirects to.
func (s *FacebookService) AuthURL(redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", s.AppID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", oauthScope)
	return s.DialogURL + "?" + q.Encode()
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
}

// ExchangeCode exchanges an OAuth code for an access token.
func (s *FacebookService) ExchangeCode(code, redirectURI string) (string, error) {
	endpoint := fmt.Sprintf("%s/oauth/access_token?client_id=%s&redirect_uri=%s&client_secret=%s&code=%s",
		s.GraphURL, url.QueryEscape(s.AppID), url.QueryEscape(redirectURI),
		url.QueryEscape(s.AppSecret), url.QueryEscape(code))

	resp, err := s.client.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logging.Errorf("Facebook token exchange error: %s, body: %s", resp.Status, string(body))
		return "", fmt.Errorf("facebook API error (%s)", resp.Status)
	}

	var result tokenResult
	if err := json.Unmarshal(body, &result); err == nil && result.AccessToken != "" {
		return result.AccessToken, nil
	}
	// Older Graph versions answer form-encoded: access_token=...&expires=...
	values, err := url.ParseQuery(string(body))
	if err == nil && values.Get("access_token") != "" {
		return values.Get("access_token"), nil
	}
	return "", fmt.Errorf("no access token in Facebook response")
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *FacebookService) get(endpoint string, out interface{}) error {
	resp, err := s.client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("facebook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read facebook response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr graphError
		if unmarshalErr := json.Unmarshal(body, &apiErr); unmarshalErr == nil && apiErr.Error.Message != "" {
			logging.Errorf("Facebook API error: %s (type %s, code %d)",
				apiErr.Error.Message, apiErr.Error.Type, apiErr.Error.Code)
		} else {
			logging.Errorf("Facebook API error: %s, body: %s", resp.Status, string(body))
		}
		return fmt.Errorf("facebook API error (%s)", resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse facebook response: %w", err)
	}
	return nil
}
