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

package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError represents a standardized error response.
// This ensures consistent error message formatting across all API endpoints.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondNotFoundSimple sends a 404 Not Found response with a simple message.
func RespondNotFoundSimple(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, APIError{
		Error: message,
		Code:  "NOT_FOUND",
	})
}

// RespondBadRequestWithDetails sends a 400 Bad Request with additional details.
func RespondBadRequestWithDetails(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error:   message,
		Code:    "BAD_REQUEST",
		Details: details,
	})
}

// RespondUnprocessableEntity sends a 422 response for requests that are well
// formed but cannot be turned into an email.
func RespondUnprocessableEntity(c *gin.Context, message, details string) {
	c.JSON(http.StatusUnprocessableEntity, APIError{
		Error:   message,
		Code:    "UNPROCESSABLE_ENTITY",
		Details: details,
	})
}

// RespondInternalError sends a 500 Internal Server Error response.
// It logs the error with full details but returns a sanitized message to the client.
func RespondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw(fmt.Sprintf("Failed to %s", operation), "error", err)
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: fmt.Sprintf("failed to %s", operation),
		Code:  "INTERNAL_ERROR",
	})
}

// RespondBadGateway sends a 502 Bad Gateway response for SMTP failures.
func RespondBadGateway(c *gin.Context, message, details string) {
	if message == "" {
		message = "bad gateway"
	}
	c.JSON(http.StatusBadGateway, APIError{
		Error:   message,
		Code:    "BAD_GATEWAY",
		Details: details,
	})
}

// RespondServiceUnavailable sends a 503 Service Unavailable response.
func RespondServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, APIError{
		Error: message,
		Code:  "SERVICE_UNAVAILABLE",
	})
}

// RespondGatewayTimeout sends a 504 when the client stopped waiting for the
// SMTP result. The message is still delivered.
func RespondGatewayTimeout(c *gin.Context) {
	c.JSON(http.StatusGatewayTimeout, APIError{
		Error: "timed out waiting for the mail server; delivery continues",
		Code:  "GATEWAY_TIMEOUT",
	})
}
