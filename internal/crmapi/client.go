// Package crmapi talks to the CRM backend that owns clients, FinOps tasks and
// the activity feed.
package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crm-web/internal/config"
	"crm-web/internal/models"

	"github.com/google/uuid"
)

// APIError is a non-2xx response from the CRM backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type apiResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type Client struct {
	url    string
	token  string
	client *http.Client
}

func New(cfg *config.Config) *Client {
	return NewWithHTTPClient(cfg.CRMAPIURL, cfg.CRMAPIToken, &http.Client{Timeout: cfg.CRMAPITimeout})
}

func NewWithHTTPClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		url:    strings.TrimRight(baseURL, "/"),
		token:  token,
		client: httpClient,
	}
}

// CreateClient creates one client record. Any 2xx response means the client
// exists, so an unreadable response body is not an error.
func (c *Client) CreateClient(ctx context.Context, payload models.ClientPayload) (*models.CreatedClient, error) {
	var created models.CreatedClient
	if err := c.do(ctx, http.MethodPost, "/clients", payload, &created, "failed to create client"); err != nil {
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			return nil, err
		}
		created = models.CreatedClient{Name: payload.Name}
	}
	return &created, nil
}

func (c *Client) GetFinOpsSummary(ctx context.Context) (*models.FinOpsSummary, error) {
	var summary models.FinOpsSummary
	if err := c.do(ctx, http.MethodGet, "/finops/sla-summary", nil, &summary, "failed to load FinOps summary"); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) GetActivitySummary(ctx context.Context) (*models.ActivitySummary, error) {
	var summary models.ActivitySummary
	if err := c.do(ctx, http.MethodGet, "/activity/summary", nil, &summary, "failed to load activity summary"); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, fallback string) error {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var envelope apiResponse[json.RawMessage]
		msg := ""
		if json.Unmarshal(raw, &envelope) == nil {
			msg = strings.TrimSpace(envelope.Message)
		}
		if msg == "" {
			msg = fmt.Sprintf("%s (status %d)", fallback, res.StatusCode)
		}
		return &APIError{StatusCode: res.StatusCode, Message: msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	envelope := apiResponse[json.RawMessage]{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &DecodeError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &DecodeError{Err: fmt.Errorf("decode response data: %w", err)}
	}
	return nil
}
