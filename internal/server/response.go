package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/tabtime/internal/storage"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Fields    []string    `json:"fields,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

const (
	CodeOK          = 0
	CodeInternal    = 1000
	CodeNotFound    = 1001
	CodeBadParam    = 1002
	CodeRateLimited = 1003
)

var codeMessage = map[int]string{
	CodeOK:          "ok",
	CodeInternal:    "internal_error",
	CodeNotFound:    "not_found",
	CodeBadParam:    "bad_parameter",
	CodeRateLimited: "too_many_requests",
}

func httpStatusFromCode(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeBadParam:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError lists the request fields that were missing or malformed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid or missing fields: %s", strings.Join(e.Fields, ", "))
}

func invalid(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ok writes data with code 0 and the given HTTP status.
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Code:      CodeOK,
		Message:   codeMessage[CodeOK],
		Data:      data,
		RequestID: requestID(c),
	})
}

// fail writes the envelope matching err and aborts the chain.
func (s *Server) fail(c *gin.Context, err error) {
	resp := Response{RequestID: requestID(c)}

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Code = CodeBadParam
		resp.Message = verr.Error()
		resp.Fields = verr.Fields
	case errors.Is(err, storage.ErrDateMismatch):
		resp.Code = CodeBadParam
		resp.Message = err.Error()
		resp.Fields = []string{"date"}
	case errors.Is(err, storage.ErrNotFound):
		resp.Code = CodeNotFound
		resp.Message = codeMessage[CodeNotFound]
	default:
		resp.Code = CodeInternal
		resp.Message = codeMessage[CodeInternal]
		s.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(),
			"request_id", resp.RequestID, "error", err)
	}

	c.AbortWithStatusJSON(httpStatusFromCode(resp.Code), resp)
}
