package gate

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Error codes used in HTTP error envelopes.
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

// ErrorBody is the uniform error envelope for rejected requests.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorBody{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
