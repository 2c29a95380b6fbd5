package agrosite

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrosite/agrosite/auth"
	"github.com/agrosite/agrosite/service"
	"github.com/agrosite/agrosite/store"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeValidation      = "validation_failed"
	codeBadRequest      = "bad_request"
	codeUnauthorized    = "unauthorized"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeTooManyRequests = "too_many_requests"
	codeInternal        = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// ValidationError lists the request fields that failed validation, keyed by
// their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

func fieldError(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, detail := a.classify(err)
	detail.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)

	if status >= http.StatusInternalServerError {
		log := a.requestLogger(c)
		log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorBody{Error: detail})
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("write error response")
	}
}

func (a *App) classify(err error) (int, ErrorDetail) {
	var (
		ve *ValidationError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrorDetail{Code: codeValidation, Message: "request validation failed", Fields: ve.Fields}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorDetail{Code: codeNotFound, Message: "resource not found"}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, ErrorDetail{Code: codeConflict, Message: "resource already exists"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorDetail{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, service.ErrInactiveAdmin):
		return http.StatusForbidden, ErrorDetail{Code: codeForbidden, Message: err.Error()}
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, ErrorDetail{Code: codeValidation, Message: "request validation failed", Fields: map[string]string{"password": "bcryptlen"}}
	case errors.Is(err, service.ErrInvalidNotificationType):
		return http.StatusBadRequest, ErrorDetail{Code: codeValidation, Message: "request validation failed", Fields: map[string]string{"type": "oneof"}}
	case errors.As(err, &he):
		return he.Code, ErrorDetail{Code: codeForStatus(he.Code), Message: httpErrorMessage(he)}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: codeInternal, Message: "internal server error"}
}

func httpErrorMessage(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return http.StatusText(he.Code)
	}
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return codeBadRequest
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return codeNotFound
	case http.StatusConflict:
		return codeConflict
	case http.StatusTooManyRequests:
		return codeTooManyRequests
	}
	if status >= http.StatusInternalServerError {
		return codeInternal
	}
	return codeBadRequest
}
