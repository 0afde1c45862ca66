package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leafguard/backend/internal/domain"
	"go.uber.org/zap"
)

// ErrorBody is the machine-readable error payload
type ErrorBody struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
}

// ErrorResponse is the envelope for every failed request
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrNoIdentification):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err for clients. Details are dropped for 5xx responses;
// a 502 keeps only the provider name.
func errorBody(err error, status int) ErrorBody {
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		switch {
		case errors.Is(err, domain.ErrObjectNotFound):
			return ErrorBody{Message: "File not found", Code: domain.CodeNotFound}
		default:
			return ErrorBody{Message: "Internal server error", Code: domain.CodeInternal}
		}
	}

	body := ErrorBody{Message: domainErr.Message, Code: domainErr.Code, Details: domainErr.Details}
	switch {
	case status == http.StatusInternalServerError:
		body.Message = "Internal server error"
		body.Details = nil
	case status == http.StatusBadGateway:
		body.Details = nil
		if provider, ok := domainErr.Details["provider"]; ok {
			body.Details = map[string]interface{}{"provider": provider}
		}
	case status >= 500:
		body.Details = nil
	}
	return body
}

// respondError writes the error envelope and logs server-side failures
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody(err, status)

	switch {
	case status == http.StatusInternalServerError:
		fields := []zap.Field{zap.Error(err), zap.String("path", c.Request.URL.Path)}
		if !h.config.Production {
			fields = append(fields, zap.Stack("stack"))
		}
		h.logger.Error("request failed", fields...)
	case status >= 500:
		h.logger.Warn("upstream failure", zap.Error(err), zap.String("code", body.Code))
	default:
		h.logger.Debug("request rejected", zap.Error(err), zap.String("code", body.Code))
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: body})
}
