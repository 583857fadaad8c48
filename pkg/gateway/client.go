// Package gateway talks to the external WhatsApp gateway that owns the
// actual phone sessions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 15 * time.Second
	maxErrorBody   = 1024
)

var ErrMissingCredentials = errors.New("gateway: api url and instance id are required")

// Error is returned for any failed gateway call. StatusCode is zero when the
// gateway could not be reached at all.
type Error struct {
	StatusCode int
	Body       string
	Path       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway %s unreachable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: status=%d body=%s", e.Path, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the call may succeed.
func (e *Error) Temporary() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTemporary reports whether err carries a retryable gateway failure.
func IsTemporary(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Temporary()
}

// Credentials identify one gateway-side instance.
type Credentials struct {
	APIURL     string
	APIKey     string
	InstanceID string
}

type Media struct {
	URL     string `json:"url"`
	Type    string `json:"type,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type SendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Media   *Media `json:"media,omitempty"`
}

type SendResponse struct {
	ID string `json:"id"`
}

type StatusResponse struct {
	Connected   bool   `json:"connected"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type QRResponse struct {
	QRCode string `json:"qr_code"`
}

// Client issues authenticated requests for a single instance. It never
// retries; callers wrap it with pkg/retry when they want to.
type Client struct {
	creds      Credentials
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
		}
	}
}

func NewClient(creds Credentials, opts ...Option) *Client {
	creds.APIURL = strings.TrimRight(strings.TrimSpace(creds.APIURL), "/")
	creds.InstanceID = strings.TrimSpace(creds.InstanceID)
	c := &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping probes gateway reachability with the instance credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/status", nil, nil)
}

func (c *Client) QRCode(ctx context.Context) (string, error) {
	var resp QRResponse
	if err := c.jsonRequest(ctx, http.MethodGet, c.instancePath("qr"), nil, &resp); err != nil {
		return "", err
	}
	return resp.QRCode, nil
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.jsonRequest(ctx, http.MethodGet, c.instancePath("status"), nil, &resp)
	return resp, err
}

// Send delivers one message and returns the gateway-assigned message id.
func (c *Client) Send(ctx context.Context, req SendRequest) (string, error) {
	var resp SendResponse
	if err := c.jsonRequest(ctx, http.MethodPost, c.instancePath("send"), req, &resp); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"instance_id": c.creds.InstanceID,
		"message_id":  resp.ID,
	}).Debug("[GATEWAY] message accepted")
	return resp.ID, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodPost, c.instancePath("logout"), nil, nil)
}

func (c *Client) Restart(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodPost, c.instancePath("restart"), nil, nil)
}

func (c *Client) instancePath(action string) string {
	return "/instance/" + url.PathEscape(c.creds.InstanceID) + "/" + action
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, body any, dest any) error {
	if c.creds.APIURL == "" || c.creds.InstanceID == "" {
		return ErrMissingCredentials
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.creds.APIURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b)), Path: path}
	}

	if dest == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway %s: read body: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("gateway %s: decode body: %w", path, err)
	}
	return nil
}
