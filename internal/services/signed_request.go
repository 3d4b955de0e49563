package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// SignedRequest is the decoded payload Facebook attaches to canvas and page
// tab requests. UserID is empty until the user has authorized the app.
type SignedRequest struct {
	Algorithm string `json:"algorithm"`
	UserID    string `json:"user_id"`
	Page      *struct {
		ID    string `json:"id"`
		Liked bool   `json:"liked"`
		Admin bool   `json:"admin"`
	} `json:"page"`
}

// PageID returns the embedding page's id, or "" outside a page tab.
func (sr *SignedRequest) PageID() string {
	if sr == nil || sr.Page == nil {
		return ""
	}
	return sr.Page.ID
}

// ParseSignedRequest verifies and decodes a signed_request parameter.
// The format is "<base64url sig>.<base64url payload>", signed with the app
// secret using HMAC-SHA256.
func (s *FacebookService) ParseSignedRequest(raw string) (*SignedRequest, error) {
	sig, payload, ok := strings.Cut(raw, ".")
	if !ok {
		return nil, fmt.Errorf("malformed signed_request")
	}

	sigBytes, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("malformed signed_request signature: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(s.AppSecret))
	mac.Write([]byte(payload))
	if !hmac.Equal(sigBytes, mac.Sum(nil)) {
		return nil, fmt.Errorf("signed_request signature mismatch")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed signed_request payload: %w", err)
	}

	var sr SignedRequest
	if err := json.Unmarshal(payloadBytes, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse signed_request payload: %w", err)
	}
	if !strings.EqualFold(sr.Algorithm, "HMAC-SHA256") {
		return nil, fmt.Errorf("unsupported signed_request algorithm %q", sr.Algorithm)
	}
	return &sr, nil
}
