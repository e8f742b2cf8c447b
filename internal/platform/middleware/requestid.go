package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is the header the request ID is read from and echoed on.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is where RequestID stores the ID on the echo context; the
// logger and recovery middleware read it back through ContextRequestID.
const requestIDKey = "request_id"

// RequestID attaches a request ID to each request: the caller's, when one was
// supplied, or a fresh UUID. The ID is echoed back in the response header so
// clients can quote it when reporting a failed call.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

// ContextRequestID returns the ID RequestID stored on the context, or ""
// when the middleware did not run.
func ContextRequestID(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}
