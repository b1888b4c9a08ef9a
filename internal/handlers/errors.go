package handlers

import (
	"context"
	"errors"
	"net/http"

	"hive_schedule/internal/cognito"
	"hive_schedule/internal/hive"
	"hive_schedule/internal/service"
	"hive_schedule/internal/session"

	"github.com/gin-gonic/gin"
)

const errInternal = "internal error"

// statusFor maps service, session and Hive errors onto HTTP codes.
// Order matters: wrapped errors may match several sentinels.
func statusFor(err error) int {
	var upstream *hive.UpstreamError
	var idp *cognito.APIError
	switch {
	case errors.Is(err, hive.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrInvalidParams),
		errors.Is(err, service.ErrUnknownDay),
		errors.Is(err, service.ErrUnknownProfile),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, hive.ErrMalformedTime),
		errors.Is(err, hive.ErrInvalidTemp),
		errors.Is(err, hive.ErrDuplicateDay):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSignUpClosed):
		return http.StatusForbidden
	case errors.Is(err, hive.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidMfaCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrMfaRequired), errors.Is(err, session.ErrNoPendingChallenge):
		return http.StatusConflict
	case errors.Is(err, session.ErrAuthFailed),
		errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, hive.ErrAuthenticationFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNoAuthAvailable), errors.Is(err, hive.ErrUnauthenticated):
		return http.StatusConflict
	case errors.Is(err, hive.ErrCannotPreserveSchedule),
		errors.Is(err, hive.ErrScheduleNotFound),
		errors.Is(err, hive.ErrMalformedSchedule),
		errors.As(err, &upstream),
		errors.As(err, &idp):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err under logKey and writes the mapped status.
// 500 bodies never carry the error text.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	fields := append([]interface{}{"err", err, "status", code}, kv...)
	msg := err.Error()
	switch {
	case code == http.StatusInternalServerError:
		h.log.Errorw(logKey, fields...)
		msg = errInternal
	case code >= http.StatusBadGateway:
		h.log.Warnw(logKey, fields...)
	default:
		h.log.Infow(logKey, fields...)
	}
	c.JSON(code, gin.H{"error": msg})
}
