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
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/apiresponses"
	"github.com/telekom/email-notifier/pkg/mail"
	"github.com/telekom/email-notifier/pkg/notifier"
)

// RespondSendError maps a compose or send error to a response.
func RespondSendError(c *gin.Context, err error, log *zap.SugaredLogger) {
	switch {
	case errors.Is(err, notifier.ErrTemplate),
		errors.Is(err, notifier.ErrInvalidRecipient),
		errors.Is(err, notifier.ErrAttachmentDecode):
		apiresponses.RespondUnprocessableEntity(c, "failed to compose notification", err.Error())
	case errors.Is(err, notifier.ErrAttachmentRead):
		apiresponses.RespondInternalError(c, "read inline image", err, log)
	case errors.Is(err, mail.ErrQueueFull), errors.Is(err, mail.ErrQueueStopped):
		apiresponses.RespondServiceUnavailable(c, err.Error())
	default:
		apiresponses.RespondBadGateway(c, "failed to send notification", err.Error())
	}
}
