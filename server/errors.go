package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/snowflake"
	"github.com/ceyewan/leaf/xerrors"
)

// 错误码
const (
	CodeBadRequest      = "bad_request"
	CodeUnknownKey      = "unknown_key"
	CodeNotInitialized  = "not_initialized"
	CodeExhausted       = "segments_exhausted"
	CodeClockRegression = "clock_regression"
	CodeWorkerID        = "worker_id_out_of_range"
	CodeTimeout         = "timeout"
	CodeInternal        = "internal"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify 把领域错误映射为 HTTP 状态码与错误码
func classify(err error) (int, string) {
	switch {
	case xerrors.Is(err, segment.ErrUnknownKey):
		return http.StatusNotFound, CodeUnknownKey
	case xerrors.Is(err, segment.ErrNotInitialized):
		return http.StatusServiceUnavailable, CodeNotInitialized
	case xerrors.Is(err, segment.ErrBothSegmentsExhausted):
		return http.StatusServiceUnavailable, CodeExhausted
	case xerrors.Is(err, snowflake.ErrClockRegression), xerrors.Is(err, snowflake.ErrClockRegressionSevere):
		return http.StatusInternalServerError, CodeClockRegression
	case xerrors.Is(err, snowflake.ErrBoundsViolation):
		return http.StatusInternalServerError, CodeWorkerID
	case xerrors.Is(err, context.DeadlineExceeded), xerrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeTimeout
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest, CodeBadRequest
	}
	return http.StatusInternalServerError, CodeInternal
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if attached := xerrors.GetCode(err); attached != "" {
		code = attached
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			clog.String("route", c.FullPath()),
			clog.String("code", code),
			clog.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: err.Error()})
}
