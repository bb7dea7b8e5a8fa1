package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/validator"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ErrorStatus maps err onto an HTTP status and the response body. Internal
// details are never exposed for 5xx responses.
func ErrorStatus(err error) (int, *Response) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, NewErrorResponse("internal server error")
	}

	status := appErr.StatusCode()
	resp := NewErrorResponse(appErr.Message)

	var fields validator.Errors
	if errors.As(appErr, &fields) {
		resp.Data = fields
	}
	return status, resp
}

// Abort records err for the error middleware and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
