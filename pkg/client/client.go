/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/telekom/email-notifier/pkg/api"
	"github.com/telekom/email-notifier/pkg/apiresponses"
	"github.com/telekom/email-notifier/pkg/version"
)

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:      &http.Client{Timeout: 90 * time.Second},
		userAgent: "email-notifier/" + version.Version,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("server is required")
	}
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("invalid server %q: scheme must be http or https", server)
		}
		c.baseURL = parsed
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

// WithTimeout bounds each request. Synchronous sends wait for the SMTP result,
// so keep it above the server's delivery send timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.http.Timeout = timeout
		return nil
	}
}

func WithTLSConfig(caFile string, insecureSkipTLSVerify bool) Option {
	return func(c *Client) error {
		tlsConfig, err := loadTLSConfig(caFile, insecureSkipTLSVerify)
		if err != nil {
			return err
		}
		c.http = &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
			Timeout:   c.http.Timeout,
		}
		return nil
	}
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecure} //nolint:gosec // opt-in for test servers
	if caFile == "" {
		return tlsConfig, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, errors.New("failed to parse CA file")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// SendResult describes an accepted or completed notification.
type SendResult struct {
	// RequestID is the correlation ID the server logged and audited the
	// notification under.
	RequestID string
	// Accepted is true when the server queued the message without waiting
	// for the SMTP result.
	Accepted bool
}

// Send posts a notification. With async the server answers once the message
// is composed and queued.
func (c *Client) Send(ctx context.Context, req api.NotificationRequest, async bool) (SendResult, error) {
	endpoint := "/api/v1/notifications"
	if async {
		endpoint += "?async=true"
	}
	resp, err := c.do(ctx, http.MethodPost, endpoint, req, nil)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{
		RequestID: resp.Header.Get("X-Request-ID"),
		Accepted:  resp.StatusCode == http.StatusAccepted,
	}, nil
}

// Preview composes a notification on the server without sending it.
func (c *Client) Preview(ctx context.Context, req api.NotificationRequest) (*api.MessagePreview, error) {
	var preview api.MessagePreview
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/notifications/preview", req, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) (*http.Response, error) {
	fullURL := *c.baseURL
	parsedEndpoint, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	fullURL.Path = path.Join(fullURL.Path, parsedEndpoint.Path)
	if parsedEndpoint.RawQuery != "" {
		fullURL.RawQuery = parsedEndpoint.RawQuery
	}

	var payload io.Reader
	if body != nil {
		bytesBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(bytesBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return resp, decodeError(resp)
	}
	if out == nil {
		return resp, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var apiErr apiresponses.APIError
	body, _ := io.ReadAll(resp.Body)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &apiErr)
	}
	msg := strings.TrimSpace(apiErr.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Code:       apiErr.Code,
		Message:    msg,
		Details:    apiErr.Details,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
}

type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
	RequestID  string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}
