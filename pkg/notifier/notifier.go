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

package notifier

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/audit"
	"github.com/telekom/email-notifier/pkg/config"
	"github.com/telekom/email-notifier/pkg/mail"
	"github.com/telekom/email-notifier/pkg/telemetry"
	"github.com/telekom/email-notifier/pkg/templating"
)

// Type is the notifier type name.
const Type = "email-notifier"

// Notifier sends notifications configured by one config.Notifier.
type Notifier struct {
	cfg       config.Notifier
	composer  *Composer
	transport mail.Transport
	recorder  *audit.Recorder
	log       *zap.SugaredLogger
}

// New creates a notifier. recorder may be nil.
func New(cfg config.Notifier, engine *templating.Engine, transport mail.Transport, recorder *audit.Recorder, log *zap.SugaredLogger) *Notifier {
	log = log.Named("notifier")
	return &Notifier{
		cfg:       cfg,
		composer:  NewComposer(engine, log),
		transport: transport,
		recorder:  recorder,
		log:       log,
	}
}

// Request builds a request from the configured templates.
func (n *Notifier) Request(params map[string]any) Request {
	return Request{
		From:       n.cfg.From,
		To:         n.cfg.To,
		Subject:    n.cfg.Subject,
		Body:       n.cfg.Body,
		Parameters: params,
	}
}

// Prepare composes the configured templates with params without sending.
func (n *Notifier) Prepare(params map[string]any) (*Message, error) {
	return n.Compose(n.Request(params))
}

// Compose composes req without sending.
func (n *Notifier) Compose(req Request) (*Message, error) {
	return n.composer.Compose(req)
}

// TransportConfig returns the SMTP settings used for every send.
func (n *Notifier) TransportConfig() mail.TransportConfig {
	return BuildTransportConfig(n.cfg)
}

// Send composes and delivers req and waits for the transport result. If ctx
// ends first, ctx.Err() is returned and the delivery still completes.
func (n *Notifier) Send(ctx context.Context, req Request) error {
	select {
	case err := <-n.SendAsync(ctx, req):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendAsync composes req on the calling goroutine and hands the message to the
// transport. The returned channel receives exactly one value: nil on success,
// the composition error, or the transport error unchanged.
func (n *Notifier) SendAsync(ctx context.Context, req Request) <-chan error {
	log := n.log.With("correlationID", req.CorrelationID)

	_, span := telemetry.Tracer().Start(ctx, "notifier.compose")
	msg, err := n.Compose(req)
	if msg != nil {
		span.SetAttributes(
			attribute.Int("email.recipients", len(msg.To)),
			attribute.Int("email.attachments", len(msg.Attachments)),
		)
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		log.Errorw("Error while sending email notification", "error", err)
		event := audit.NewEvent(audit.EventNotificationRejected, Type).WithError(err)
		event.CorrelationID = req.CorrelationID
		n.recorder.Record(ctx, event)

		result := make(chan error, 1)
		result <- err
		return result
	}
	return n.deliver(ctx, msg, req.CorrelationID, log)
}

// Deliver hands an already composed message to the transport.
func (n *Notifier) Deliver(ctx context.Context, msg *Message) <-chan error {
	return n.deliver(ctx, msg, "", n.log)
}

func (n *Notifier) deliver(ctx context.Context, msg *Message, correlationID string, log *zap.SugaredLogger) <-chan error {
	result := make(chan error, 1)
	cfg := n.TransportConfig()
	mimeMsg := msg.MIME()
	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.Tracer().Start(ctx, "notifier.deliver")
	span.SetAttributes(
		attribute.String("smtp.host", cfg.Host),
		attribute.Int("email.recipients", len(msg.To)),
	)

	go func() {
		err := n.transport.Send(ctx, mimeMsg, cfg)
		telemetry.EndSpan(span, err)

		eventType := audit.EventNotificationSent
		if err != nil {
			eventType = audit.EventNotificationFailed
			log.Errorw("Email failed",
				"host", cfg.Host,
				"recipients", len(msg.To),
				"error", err)
		} else {
			log.Infow("Email sent",
				"host", cfg.Host,
				"recipients", len(msg.To),
				"attachments", len(msg.Attachments))
		}

		event := audit.NewEvent(eventType, Type).WithError(err)
		event.CorrelationID = correlationID
		event.From = msg.From
		event.Recipients = msg.To
		event.Subject = msg.Subject
		event.Attachments = len(msg.Attachments)
		event.Host = cfg.Host
		n.recorder.Record(ctx, event)

		result <- err
	}()
	return result
}
