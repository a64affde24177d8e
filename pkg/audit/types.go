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

package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened to a notification.
type EventType string

const (
	// EventNotificationSent is recorded when the transport accepted the message.
	EventNotificationSent EventType = "notification.sent"
	// EventNotificationFailed is recorded when the transport reported an error.
	EventNotificationFailed EventType = "notification.failed"
	// EventNotificationRejected is recorded when composition failed and nothing
	// was handed to the transport.
	EventNotificationRejected EventType = "notification.rejected"
)

// Event is one audit record.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	Notifier      string    `json:"notifier"`
	CorrelationID string    `json:"correlationId,omitempty"`

	From        string   `json:"from,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	Attachments int      `json:"attachments,omitempty"`
	Host        string   `json:"host,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current UTC time.
func NewEvent(eventType EventType, notifier string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Notifier:  notifier,
	}
}

// WithError sets Error from err when err is not nil.
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
