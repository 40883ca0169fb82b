package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	cachedomain "github.com/smallbiznis/ispreport/internal/permcache/domain"
	permissiondomain "github.com/smallbiznis/ispreport/internal/permission/domain"
	reportdomain "github.com/smallbiznis/ispreport/internal/report/domain"
	"github.com/smallbiznis/ispreport/internal/source"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// FieldError names the offending request field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequestError carries field-level problems found before any domain call.
type RequestError struct {
	Fields []FieldError
}

func (e *RequestError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid_request"
	}
	return e.Fields[0].Code
}

func fieldError(field, code, message string) error {
	return &RequestError{Fields: []FieldError{{Field: field, Code: code, Message: message}}}
}

func badRequest() error {
	return fieldError("request", "invalid_request", "invalid request")
}

type apiError struct {
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// domainValidation maps domain sentinels onto request field errors.
var domainValidation = []struct {
	target error
	field  FieldError
}{
	{ErrInvalidRequest, FieldError{"request", "invalid_request", "invalid request"}},
	{reportdomain.ErrNoCreators, FieldError{"creators", "no_creators", "at least one creator is required"}},
	{reportdomain.ErrInvalidLimit, FieldError{"limit", "invalid_limit", "limit must not be negative"}},
	{permissiondomain.ErrInvalidKind, FieldError{"kind", "invalid_kind", "kind must be service, status or center"}},
	{cachedomain.ErrInvalidKind, FieldError{"kind", "invalid_kind", "kind must be service, status or center"}},
	{permissiondomain.ErrInvalidUsername, FieldError{"username", "invalid_username", "username is required"}},
	{permissiondomain.ErrInvalidTenant, FieldError{"tenant", "invalid_tenant", "tenant is required"}},
	{cachedomain.ErrInvalidTenant, FieldError{"tenant", "invalid_tenant", "tenant is required"}},
}

// ErrorHandlingMiddleware renders the last handler error unless a body was already written.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, body := describeError(last.Err)
		c.AbortWithStatusJSON(status, gin.H{"error": body})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func describeError(err error) (int, apiError) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, apiError{Type: "validation_error", Message: "validation error", Errors: reqErr.Fields}
	}
	for _, v := range domainValidation {
		if errors.Is(err, v.target) {
			return http.StatusBadRequest, apiError{Type: "validation_error", Message: "validation error", Errors: []FieldError{v.field}}
		}
	}

	var (
		cfgErr  *source.ConfigurationError
		connErr *source.ConnectivityError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusNotFound, apiError{Type: "unknown_tenant", Message: "tenant is not configured"}
	case errors.Is(err, ErrNotFound), errors.Is(err, permissiondomain.ErrResellerNotFound):
		return http.StatusNotFound, apiError{Type: "not_found", Message: "not found"}
	case errors.Is(err, permissiondomain.ErrCacheEmpty), errors.Is(err, source.ErrNoSources):
		return http.StatusServiceUnavailable, apiError{Type: "service_unavailable", Message: "permission cache is not ready"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apiError{Type: "timeout", Message: "source query timed out"}
	case errors.As(err, &connErr):
		return http.StatusBadGateway, apiError{Type: "source_unavailable", Message: "report source unavailable"}
	}
	return http.StatusInternalServerError, apiError{Type: "internal_error", Message: "internal server error"}
}

// classifyErrorForLog returns the type and first field code the client receives.
func classifyErrorForLog(err error) (string, string) {
	_, body := describeError(err)
	if len(body.Errors) == 0 {
		return body.Type, ""
	}
	return body.Type, body.Errors[0].Code
}
