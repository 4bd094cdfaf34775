package http

import (
	"net/http"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/auth"
	"github.com/gin-gonic/gin"
)

// RESTHandler serves read-only views of rooms, results and stats.
type RESTHandler struct {
	service *app.MatchService
}

func NewRESTHandler(service *app.MatchService) *RESTHandler {
	return &RESTHandler{service: service}
}

func (h *RESTHandler) GetRoom(c *gin.Context) {
	room, err := h.service.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		jsonError(c, statusFor(err), clientMessage(err))
		return
	}
	identity, _ := auth.UserFromContext(c.Request.Context())
	c.JSON(http.StatusOK, roomView(room, identity.UserID))
}

func (h *RESTHandler) GetResult(c *gin.Context) {
	result, err := h.service.Result(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		jsonError(c, statusFor(err), clientMessage(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RESTHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		jsonError(c, statusFor(err), clientMessage(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}
