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
	"io"
	"mime"
	"strings"

	"gopkg.in/gomail.v2"
)

// DispositionInline is the only disposition used for attachments.
const DispositionInline = "inline"

// Request is the raw, not yet rendered input of one notification.
type Request struct {
	From    string
	To      string
	Subject string
	Body    string

	Parameters map[string]any

	// CorrelationID is copied to logs and audit events.
	CorrelationID string
}

// Message is a fully composed email. It is not modified once handed to the
// transport.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Attachment is an inline image referenced from the HTML body by content ID.
type Attachment struct {
	// ContentID is "<id>"; the body references it as "cid:id".
	ContentID   string
	ContentType string
	Data        []byte
	Disposition string
}

// CID returns the content ID without angle brackets.
func (a Attachment) CID() string {
	return strings.TrimSuffix(strings.TrimPrefix(a.ContentID, "<"), ">")
}

func (a Attachment) filename() string {
	name := a.CID()
	if a.ContentType == "" {
		return name
	}
	if exts, err := mime.ExtensionsByType(a.ContentType); err == nil && len(exts) > 0 {
		return name + exts[0]
	}
	return name
}

// MIME builds the gomail message for the transport. Attachments are embedded
// from memory with the content ID and type they were extracted with; gomail
// writes them with an inline disposition.
func (m *Message) MIME() *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)

	for _, a := range m.Attachments {
		data := a.Data
		header := map[string][]string{"Content-ID": {a.ContentID}}
		if a.ContentType != "" {
			header["Content-Type"] = []string{a.ContentType}
		}
		msg.Embed(a.filename(),
			gomail.SetHeader(header),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}
	return msg
}
