// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by every endpoint:
// the structured error envelope and the success/no-content helpers. Both
// success and failure shapes stay uniform across resources so the dashboard
// can handle them generically.
//
// Conventions:
//   - Every error response is an ErrorResponse with a stable `code`.
//   - fail() centralizes formatting and logs 5xx responses with request
//     context through the request-scoped logger.
//   - ok() and noContent() keep success responses uniform.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "resource not found"
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "id": "local-9af…", "name": "Vitrine 2 portes", "serial_number": "FR-2024-0117" }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
// RequestID echoes the X-Request-ID header so client-side errors can be
// correlated with server logs; Code is a stable machine-readable string
// (constants in errors.go); Message is safe to show to users. Referenced by
// the Swagger annotations on each handler.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts the request with a structured error. Server errors (>= 500)
// are additionally logged with the request-scoped logger before the JSON
// envelope is written.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for callers outside this package,
// such as the router's NoRoute and NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
