package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/visit-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an API error
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a success response with 201 status
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response with the status mapped from the
// error kind.
func RespondWithError(c *gin.Context, err error) {
	kind := errors.KindOf(err)

	message := "internal server error"
	if appErr, ok := err.(*errors.AppError); ok && kind != errors.KindInternal {
		message = appErr.Message
	}

	c.JSON(statusFor(kind), Response{
		Success: false,
		Error: &Error{
			Kind:    kind.String(),
			Message: message,
		},
	})
}

func statusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
