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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/apiresponses"
	"github.com/telekom/email-notifier/pkg/config"
	"github.com/telekom/email-notifier/pkg/mail"
	"github.com/telekom/email-notifier/pkg/notifier"
)

type fakeNotifier struct {
	mu         sync.Mutex
	requests   []notifier.Request
	composeErr error
	sendErr    error
	// block keeps SendAsync from answering until closed.
	block chan struct{}
}

func (f *fakeNotifier) Request(params map[string]any) notifier.Request {
	return notifier.Request{
		From:       "noreply@example.com",
		To:         "{{ .to }}",
		Subject:    "Hello {{ .name }}",
		Body:       "<p>Hi</p>",
		Parameters: params,
	}
}

func (f *fakeNotifier) Compose(req notifier.Request) (*notifier.Message, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.composeErr != nil {
		return nil, f.composeErr
	}
	return &notifier.Message{
		From:    req.From,
		To:      []string{"alice@example.com"},
		Subject: req.Subject,
		HTML:    req.Body,
		Attachments: []notifier.Attachment{{
			ContentID:   "abc",
			ContentType: "image/png",
			Data:        []byte("png"),
			Disposition: notifier.DispositionInline,
		}},
	}, nil
}

func (f *fakeNotifier) SendAsync(_ context.Context, req notifier.Request) <-chan error {
	result := make(chan error, 1)
	if _, err := f.Compose(req); err != nil {
		result <- err
		return result
	}
	if f.block != nil {
		go func() {
			<-f.block
			result <- f.sendErr
		}()
		return result
	}
	result <- f.sendErr
	return result
}

func (f *fakeNotifier) lastRequest(t *testing.T) notifier.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestServer(n Notifier, cfg config.Server) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(zap.NewNop(), cfg, n, true)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeNotifier{}, config.Server{})
	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeNotifier{}, config.Server{})
	w := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(&fakeNotifier{}, config.Server{})
	w := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendNotification(t *testing.T) {
	tests := []struct {
		name       string
		composeErr error
		sendErr    error
		body       string
		wantStatus int
	}{
		{name: "sent", body: `{"parameters":{"to":"alice@example.com"}}`, wantStatus: http.StatusNoContent},
		{name: "empty body uses configured templates", wantStatus: http.StatusNoContent},
		{name: "malformed json", body: `{"parameters":`, wantStatus: http.StatusBadRequest},
		{
			name:       "template error",
			body:       `{}`,
			composeErr: fmt.Errorf("%w: field subject: boom", notifier.ErrTemplate),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "attachment read error",
			body:       `{}`,
			composeErr: fmt.Errorf("%w: logo.png", notifier.ErrAttachmentRead),
			wantStatus: http.StatusInternalServerError,
		},
		{name: "queue full", body: `{}`, sendErr: mail.ErrQueueFull, wantStatus: http.StatusServiceUnavailable},
		{name: "smtp failure", body: `{}`, sendErr: errors.New("550 mailbox unavailable"), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{composeErr: tt.composeErr, sendErr: tt.sendErr}
			s := newTestServer(n, config.Server{})
			w := do(t, s, http.MethodPost, "/api/v1/notifications", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestSendNotificationOverrides(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestServer(n, config.Server{})

	w := do(t, s, http.MethodPost, "/api/v1/notifications",
		`{"to":"bob@example.com","subject":"Custom","parameters":{"name":"Bob"}}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	req := n.lastRequest(t)
	assert.Equal(t, "bob@example.com", req.To)
	assert.Equal(t, "Custom", req.Subject)
	assert.Equal(t, "noreply@example.com", req.From)
	assert.Equal(t, "<p>Hi</p>", req.Body)
	assert.Equal(t, map[string]any{"name": "Bob"}, req.Parameters)
	assert.Equal(t, w.Header().Get("X-Request-ID"), req.CorrelationID)
}

func TestSendNotificationKeepsRequestID(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestServer(n, config.Server{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-123", n.lastRequest(t).CorrelationID)
}

func TestSendNotificationAsync(t *testing.T) {
	t.Run("accepted before delivery finishes", func(t *testing.T) {
		n := &fakeNotifier{block: make(chan struct{})}
		defer close(n.block)
		s := newTestServer(n, config.Server{})

		w := do(t, s, http.MethodPost, "/api/v1/notifications?async=true", `{}`)
		require.Equal(t, http.StatusAccepted, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "accepted", body["status"])
		assert.Equal(t, w.Header().Get("X-Request-ID"), body["id"])
	})

	t.Run("composition errors are still reported", func(t *testing.T) {
		n := &fakeNotifier{composeErr: fmt.Errorf("%w: field to: bad", notifier.ErrInvalidRecipient)}
		s := newTestServer(n, config.Server{})

		w := do(t, s, http.MethodPost, "/api/v1/notifications?async=true", `{}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSendNotificationClientGone(t *testing.T) {
	n := &fakeNotifier{block: make(chan struct{})}
	defer close(n.block)
	s := newTestServer(n, config.Server{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestPreviewNotification(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestServer(n, config.Server{})

	w := do(t, s, http.MethodPost, "/api/v1/notifications/preview", `{"parameters":{"name":"Alice"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var preview MessagePreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, "noreply@example.com", preview.From)
	assert.Equal(t, []string{"alice@example.com"}, preview.To)
	assert.Equal(t, "<p>Hi</p>", preview.HTML)
	require.Len(t, preview.Attachments, 1)
	assert.Equal(t, AttachmentPreview{ContentID: "abc", ContentType: "image/png", Size: 3}, preview.Attachments[0])
}

func TestPreviewNotificationError(t *testing.T) {
	n := &fakeNotifier{composeErr: fmt.Errorf("%w: bad base64", notifier.ErrAttachmentDecode)}
	s := newTestServer(n, config.Server{})

	w := do(t, s, http.MethodPost, "/api/v1/notifications/preview", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var apiErr apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Contains(t, apiErr.Details, "bad base64")
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeNotifier{}, config.Server{AllowedOrigins: []string{"https://ui.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/notifications", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(&fakeNotifier{}, config.Server{RateLimit: &config.RateLimit{Rate: 0.001, Burst: 1}})
	defer s.Close()

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, "/api/v1/notifications", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodPost, "/api/v1/notifications", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
}

func TestTracingContinuesCallerTrace(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	otel.SetTextMapPropagator(propagation.TraceContext{})

	s := newTestServer(&fakeNotifier{sendErr: errors.New("421 try later")}, config.Server{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadGateway, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/v1/notifications", spans[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestListenShutsDownOnCancel(t *testing.T) {
	s := newTestServer(&fakeNotifier{}, config.Server{ListenAddress: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
