package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creditx/hold-service/internal/api_gateway/middleware"
	"github.com/creditx/hold-service/internal/domain/hold"
)

const (
	codeBadRequest = "BAD_REQUEST"
	codeNotFound   = "NOT_FOUND"
	codeInternal   = "INTERNAL_SERVER_ERROR"
)

// Response is the envelope for every hold API reply
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo carries a stable code for clients. Details lists individual
// validation problems when there are any.
type ErrorInfo struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func respond(c *gin.Context, statusCode int, data interface{}, info *ErrorInfo) {
	c.JSON(statusCode, &Response{
		Data:          data,
		Error:         info,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data, nil)
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, data, nil)
}

func RespondBadRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, nil, &ErrorInfo{Code: codeBadRequest, Message: message})
}

// RespondValidationError reports a rejected hold request, listing every problem
// when the error carries them.
func RespondValidationError(c *gin.Context, err error) {
	info := &ErrorInfo{Code: codeBadRequest, Message: err.Error()}

	var verr *hold.ValidationError
	if errors.As(err, &verr) {
		info.Details = verr.Problems
	}
	respond(c, http.StatusBadRequest, nil, info)
}

func RespondNotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, nil, &ErrorInfo{Code: codeNotFound, Message: message})
}

// RespondInternalError hides the cause from the client; callers log it
func RespondInternalError(c *gin.Context) {
	respond(c, http.StatusInternalServerError, nil, &ErrorInfo{Code: codeInternal, Message: "An internal server error occurred"})
}
