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
	"fmt"

	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/metrics"
	"github.com/telekom/email-notifier/pkg/templating"
)

// Composer turns a Request into a Message. It holds no per-call state and is
// safe for concurrent use.
type Composer struct {
	engine Renderer
	images *ImageExtractor
}

// NewComposer creates a composer rendering with engine. File-based images are
// resolved against the engine's templates root.
func NewComposer(engine *templating.Engine, log *zap.SugaredLogger) *Composer {
	return &Composer{
		engine: engine,
		images: NewImageExtractor(engine.Root(), log.Named("images")),
	}
}

// Compose renders every field of req and extracts inline images from the
// body. No partial message is returned on error.
func (c *Composer) Compose(req Request) (*Message, error) {
	msg, err := c.compose(req)
	if err != nil {
		metrics.Compositions.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.Compositions.WithLabelValues("success").Inc()
	return msg, nil
}

func (c *Composer) compose(req Request) (*Message, error) {
	to, err := ResolveRecipients(c.engine, req.To, req.Parameters)
	if err != nil {
		return nil, err
	}
	from, err := c.templatize("from", req.From, req.Parameters)
	if err != nil {
		return nil, err
	}
	subject, err := c.templatize("subject", req.Subject, req.Parameters)
	if err != nil {
		return nil, err
	}
	body, err := c.templatize("body", req.Body, req.Parameters)
	if err != nil {
		return nil, err
	}

	html, attachments, err := c.images.Extract(NormalizeBody(body))
	if err != nil {
		return nil, err
	}

	return &Message{
		From:        from,
		To:          to,
		Subject:     subject,
		HTML:        html,
		Attachments: attachments,
	}, nil
}

func (c *Composer) templatize(field, tmpl string, params map[string]any) (string, error) {
	out, err := c.engine.Render(tmpl, params)
	if err != nil {
		return "", fmt.Errorf("%w: field %s: %w", ErrTemplate, field, err)
	}
	return out, nil
}
