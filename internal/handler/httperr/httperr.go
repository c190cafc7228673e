package httperr

import (
	"github.com/gin-gonic/gin"
)

// Code is the machine-readable failure class carried alongside the
// human-readable message.
type Code string

const (
	CodeValidation       Code = "VALIDATION"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeNoAvailability   Code = "NO_AVAILABILITY"
	CodeAlreadyCancelled Code = "ALREADY_CANCELLED"
	CodeBlocked          Code = "BLOCKED_BY_DEPENDENT_STATE"
	CodePersistence      Code = "PERSISTENCE"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, code Code, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Code = code
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}
