package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cmfbsub/pkg/logging"
)

// CreateSendService talks to the Campaign Monitor API (v3). Callers that
// need the original "anything went wrong means no data" behavior convert
// errors to empty values themselves.
type CreateSendService struct {
	// BaseURL is overridable for tests.
	BaseURL string
	client  *http.Client
}

// NewCreateSendService creates a Campaign Monitor API client
func NewCreateSendService() *CreateSendService {
	return &CreateSendService{
		BaseURL: "https://api.createsend.com/api/v3",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Client is a Campaign Monitor client account.
type Client struct {
	ClientID string `json:"ClientID"`
	Name     string `json:"Name"`
}

// MailingList is a subscriber list belonging to a client.
type MailingList struct {
	ListID string `json:"ListID"`
	Name   string `json:"Name"`
}

// CustomFieldDef is a custom field definition on a list. Key carries the
// surrounding square brackets, e.g. "[city]".
type CustomFieldDef struct {
	FieldName    string   `json:"FieldName"`
	Key          string   `json:"Key"`
	DataType     string   `json:"DataType"`
	FieldOptions []string `json:"FieldOptions"`
}

// SubscriberField is one custom field value submitted with a subscriber.
type SubscriberField struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type apiKeyResult struct {
	APIKey string `json:"ApiKey"`
}

// GetAPIKey exchanges account credentials for the account's API key.
func (s *CreateSendService) GetAPIKey(siteURL, username, password string) (string, error) {
	endpoint := fmt.Sprintf("%s/apikey.json?SiteUrl=%s", s.BaseURL, url.QueryEscape(siteURL))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(username, password)

	var result apiKeyResult
	if err := s.do(req, &result); err != nil {
		return "", err
	}
	return result.APIKey, nil
}

// GetClients lists the clients visible to an API key.
func (s *CreateSendService) GetClients(apiKey string) ([]Client, error) {
	var clients []Client
	if err := s.get(apiKey, "/clients.json", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// GetLists lists the subscriber lists of a client.
func (s *CreateSendService) GetLists(apiKey, clientID string) ([]MailingList, error) {
	var lists []MailingList
	path := fmt.Sprintf("/clients/%s/lists.json", url.PathEscape(clientID))
	if err := s.get(apiKey, path, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetCustomFields lists the custom field definitions of a list.
func (s *CreateSendService) GetCustomFields(apiKey, listID string) ([]CustomFieldDef, error) {
	var fields []CustomFieldDef
	path := fmt.Sprintf("/lists/%s/customfields.json", url.PathEscape(listID))
	if err := s.get(apiKey, path, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

type addSubscriberRequest struct {
	EmailAddress string            `json:"EmailAddress"`
	Name         string            `json:"Name"`
	CustomFields []SubscriberField `json:"CustomFields"`
	Resubscribe  bool              `json:"Resubscribe"`
}

// AddSubscriber adds a subscriber to a list.
func (s *CreateSendService) AddSubscriber(apiKey, listID, email, name string, fields []SubscriberField, resubscribe bool) error {
	body, err := json.Marshal(addSubscriberRequest{
		EmailAddress: email,
		Name:         name,
		CustomFields: fields,
		Resubscribe:  resubscribe,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal subscriber: %w", err)
	}

	endpoint := fmt.Sprintf("%s/subscribers/%s.json", s.BaseURL, url.PathEscape(listID))
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(apiKey, "x")

	return s.do(req, nil)
}

// get performs an authenticated GET and decodes the JSON response into out.
func (s *CreateSendService) get(apiKey, path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Campaign Monitor authenticates with the API key as the basic auth
	// username and a throwaway password.
	req.SetBasicAuth(apiKey, "x")
	return s.do(req, out)
}

type createSendError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

func (s *CreateSendService) do(req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("createsend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr createSendError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			logging.Errorf("Campaign Monitor API error: %s %s (%s)", resp.Status, apiErr.Message, apiErr.Code)
			return fmt.Errorf("createsend API error: %s (%s)", apiErr.Message, resp.Status)
		}
		logging.Errorf("Campaign Monitor API error: %s", resp.Status)
		return fmt.Errorf("createsend API error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode createsend response: %w", err)
	}
	return nil
}
