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

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/email-notifier/pkg/metrics"
	"github.com/telekom/email-notifier/pkg/telemetry"
)

// Transport delivers a fully composed message. Implementations report the
// outcome exactly once and never resend.
type Transport interface {
	Send(ctx context.Context, msg *gomail.Message, cfg TransportConfig) error
}

// ErrPoolClosed is returned by Send after Close.
var ErrPoolClosed = errors.New("smtp pool is closed")

const (
	defaultIdleTimeout = 30 * time.Second
	defaultSendTimeout = 60 * time.Second
	defaultLocalName   = "localhost"
)

// PoolOptions tunes connection handling. Zero values select defaults.
type PoolOptions struct {
	// IdleTimeout closes a shared connection that has not been used for this long.
	IdleTimeout time.Duration
	// SendTimeout bounds one SMTP transaction including dialing.
	SendTimeout time.Duration
	// LocalName is announced in EHLO.
	LocalName string
	// Dialer opens the TCP connection. Defaults to a net.Dialer.
	Dialer func(ctx context.Context, network, address string) (net.Conn, error)
}

// Pool is a Transport that keeps one shared SMTP connection per
// TransportConfig.Key. Sends on the same key are serialized over that
// connection; different keys proceed in parallel.
type Pool struct {
	opts PoolOptions
	log  *zap.SugaredLogger

	mu      sync.Mutex
	clients map[string]*sharedClient
	closed  bool
}

// NewPool creates an empty pool.
func NewPool(log *zap.SugaredLogger, opts PoolOptions) *Pool {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.LocalName == "" {
		opts.LocalName = defaultLocalName
	}
	if opts.Dialer == nil {
		d := &net.Dialer{}
		opts.Dialer = d.DialContext
	}
	return &Pool{
		opts:    opts,
		log:     log.Named("smtp-pool"),
		clients: make(map[string]*sharedClient),
	}
}

// Send delivers msg through the shared connection for cfg. ctx only bounds
// the wait for the connection; once the SMTP transaction has started it runs
// to completion or until SendTimeout.
func (p *Pool) Send(ctx context.Context, msg *gomail.Message, cfg TransportConfig) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "smtp.send", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("smtp.host", cfg.Host),
		attribute.Int("smtp.port", cfg.Port),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	client, err := p.client(cfg)
	if err != nil {
		return err
	}
	return client.send(ctx, msg)
}

func (p *Pool) client(cfg TransportConfig) (*sharedClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	key := cfg.Key()
	c, ok := p.clients[key]
	if !ok {
		c = &sharedClient{
			cfg:  cfg,
			opts: p.opts,
			log:  p.log.With("host", cfg.Host, "port", cfg.Port),
			sem:  make(chan struct{}, 1),
		}
		p.clients[key] = c
		p.log.Debugw("Created shared SMTP client", "key", key)
	}
	return c, nil
}

// Size returns the number of shared clients.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close quits every open connection. Sends in flight finish first.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	clients := p.clients
	p.clients = map[string]*sharedClient{}
	p.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sharedClient owns at most one SMTP session. sem guards the session.
type sharedClient struct {
	cfg  TransportConfig
	opts PoolOptions
	log  *zap.SugaredLogger

	sem  chan struct{}
	conn net.Conn
	smtp *smtp.Client
	idle *time.Timer
}

func (c *sharedClient) send(ctx context.Context, msg *gomail.Message) error {
	from, to, err := envelope(msg)
	if err != nil {
		metrics.MailSendFailure.WithLabelValues(c.cfg.Host).Inc()
		return err
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	if c.idle != nil {
		c.idle.Stop()
	}

	start := time.Now()
	err = c.transact(from, to, msg)
	metrics.MailSendDuration.WithLabelValues(c.cfg.Host).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MailSendFailure.WithLabelValues(c.cfg.Host).Inc()
		c.log.Warnw("SMTP transaction failed, dropping connection", "error", err)
		c.drop()
		return err
	}
	metrics.MailSendSuccess.WithLabelValues(c.cfg.Host).Inc()
	c.idle = time.AfterFunc(c.opts.IdleTimeout, c.closeIdle)
	return nil
}

// transact runs one mail transaction. A pooled session is reset with RSET
// first; a session that fails the reset is replaced before any message data
// has been sent.
func (c *sharedClient) transact(from string, to []string, msg *gomail.Message) error {
	if c.smtp != nil {
		if err := c.conn.SetDeadline(time.Now().Add(c.opts.SendTimeout)); err != nil || c.smtp.Reset() != nil {
			c.log.Debugw("Pooled SMTP connection is stale, reconnecting")
			c.drop()
		}
	}
	if c.smtp == nil {
		if err := c.dial(); err != nil {
			return err
		}
	}

	if err := c.smtp.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM %s: %w", from, err)
	}
	for _, rcpt := range to {
		if err := c.smtp.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.smtp.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	return nil
}

func (c *sharedClient) dial() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SendTimeout)
	defer cancel()

	tlsConfig := &tls.Config{
		ServerName: c.cfg.Host,
		//nolint:gosec // trust-all is an explicit operator setting
		InsecureSkipVerify: c.cfg.TrustAll,
	}
	if c.cfg.KeyStore != "" {
		cert, err := LoadKeyStore(c.cfg.KeyStore, c.cfg.KeyStorePassword)
		if err != nil {
			return err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	conn, err := c.opts.Dialer(ctx, "tcp", c.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.cfg.Address(), err)
	}
	if c.cfg.ImplicitTLS() {
		conn = tls.Client(conn, tlsConfig)
	}
	if err := conn.SetDeadline(time.Now().Add(c.opts.SendTimeout)); err != nil {
		_ = conn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("SMTP greeting from %s: %w", c.cfg.Address(), err)
	}
	if err := c.handshake(client, tlsConfig); err != nil {
		_ = client.Close()
		return err
	}

	metrics.SMTPConnections.WithLabelValues(c.cfg.Host).Inc()
	c.log.Debugw("Opened SMTP connection", "implicitTLS", c.cfg.ImplicitTLS(), "startTLS", c.cfg.StartTLS)
	c.conn = conn
	c.smtp = client
	return nil
}

func (c *sharedClient) handshake(client *smtp.Client, tlsConfig *tls.Config) error {
	if err := client.Hello(c.opts.LocalName); err != nil {
		return fmt.Errorf("EHLO: %w", err)
	}

	if c.cfg.StartTLS == StartTLSRequired && !c.cfg.ImplicitTLS() {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("STARTTLS is required but %s does not offer it", c.cfg.Address())
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
	}

	if c.cfg.Login == LoginDisabled {
		return nil
	}
	ok, advertised := client.Extension("AUTH")
	if !ok {
		c.log.Debugw("Server does not offer AUTH, sending unauthenticated")
		return nil
	}
	auth, err := selectAuth(c.cfg, advertised)
	if err != nil {
		return err
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication as %s failed: %w", c.cfg.Username, err)
	}
	return nil
}

// closeIdle quits the session unless a send currently holds it.
func (c *sharedClient) closeIdle() {
	select {
	case c.sem <- struct{}{}:
	default:
		return
	}
	defer func() { <-c.sem }()
	if c.smtp != nil {
		c.log.Debugw("Closing idle SMTP connection")
		c.quit()
	}
}

func (c *sharedClient) close() error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()
	if c.idle != nil {
		c.idle.Stop()
	}
	return c.quit()
}

func (c *sharedClient) quit() error {
	if c.smtp == nil {
		return nil
	}
	_ = c.conn.SetDeadline(time.Now().Add(5 * time.Second))
	err := c.smtp.Quit()
	if err != nil {
		_ = c.smtp.Close()
	}
	c.smtp, c.conn = nil, nil
	return err
}

func (c *sharedClient) drop() {
	if c.smtp != nil {
		_ = c.smtp.Close()
	}
	c.smtp, c.conn = nil, nil
}
