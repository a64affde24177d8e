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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/telekom/email-notifier/pkg/apiresponses"
	"github.com/telekom/email-notifier/pkg/notifier"
	"github.com/telekom/email-notifier/pkg/system"
)

// NotificationRequest is the body of both notification endpoints. Empty
// template fields fall back to the configured ones.
type NotificationRequest struct {
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"`
	Parameters map[string]any `json:"parameters"`
}

type AttachmentPreview struct {
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

type MessagePreview struct {
	From        string              `json:"from"`
	To          []string            `json:"to"`
	Subject     string              `json:"subject"`
	HTML        string              `json:"html"`
	Attachments []AttachmentPreview `json:"attachments"`
}

func (s *Server) bindRequest(c *gin.Context) (notifier.Request, bool) {
	var body NotificationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			apiresponses.RespondBadRequestWithDetails(c, "invalid request body", err.Error())
			return notifier.Request{}, false
		}
	}

	req := s.notifier.Request(body.Parameters)
	if body.From != "" {
		req.From = body.From
	}
	if body.To != "" {
		req.To = body.To
	}
	if body.Subject != "" {
		req.Subject = body.Subject
	}
	if body.Body != "" {
		req.Body = body.Body
	}
	req.CorrelationID = c.Writer.Header().Get("X-Request-ID")
	return req, true
}

// sendNotification composes and sends one email. With ?async=true it answers
// 202 once the message is composed and handed to the transport; otherwise it
// waits for the SMTP result.
func (s *Server) sendNotification(c *gin.Context) {
	log := system.GetReqLogger(c, s.log)
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}

	async, _ := strconv.ParseBool(c.Query("async"))
	result := s.notifier.SendAsync(c.Request.Context(), req)

	if async {
		select {
		case err := <-result:
			if err != nil {
				RespondSendError(c, err, log)
				return
			}
		default:
		}
		c.JSON(http.StatusAccepted, gin.H{"id": req.CorrelationID, "status": "accepted"})
		return
	}

	select {
	case err := <-result:
		if err != nil {
			log.Warnw("Notification failed", "error", err)
			RespondSendError(c, err, log)
			return
		}
		c.Status(http.StatusNoContent)
	case <-c.Request.Context().Done():
		apiresponses.RespondGatewayTimeout(c)
	}
}

func (s *Server) previewNotification(c *gin.Context) {
	log := system.GetReqLogger(c, s.log)
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}

	msg, err := s.notifier.Compose(req)
	if err != nil {
		RespondSendError(c, err, log)
		return
	}

	preview := MessagePreview{
		From:        msg.From,
		To:          msg.To,
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Attachments: make([]AttachmentPreview, 0, len(msg.Attachments)),
	}
	for _, a := range msg.Attachments {
		preview.Attachments = append(preview.Attachments, AttachmentPreview{
			ContentID:   a.ContentID,
			ContentType: a.ContentType,
			Size:        len(a.Data),
		})
	}
	c.JSON(http.StatusOK, preview)
}
