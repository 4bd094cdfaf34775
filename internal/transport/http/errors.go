package http

import (
	"errors"
	"net/http"

	"quiz-battle-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func jsonError(c *gin.Context, status int, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuth):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrResultNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrMatchAlreadyStarted),
		errors.Is(err, domain.ErrMatchNotInProgress),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuestionIndex),
		errors.Is(err, domain.ErrInvalidQuestionCount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// clientMessage is the text shown to players. Store and unexpected failures are
// not echoed verbatim.
func clientMessage(err error) string {
	switch statusFor(err) {
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable, please retry"
	case http.StatusInternalServerError:
		return "internal error"
	}
	return err.Error()
}
