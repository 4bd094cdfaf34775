package http

import (
	"log/slog"
	"net/http"

	"quiz-battle-service/internal/app"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every HTTP and WebSocket route.
func NewRouter(service *app.MatchService, verifier TokenVerifier, logger *slog.Logger, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(logger), RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rest := NewRESTHandler(service)
	ws := NewWSHandler(service, logger, allowedOrigins)

	authed := router.Group("/", JWTAuth(verifier))
	authed.GET("/ws", ws.ServeWS)

	v1 := authed.Group("/v1")
	v1.GET("/rooms/:id", rest.GetRoom)
	v1.GET("/results/:roomId", rest.GetResult)
	v1.GET("/stats/:userId", rest.GetStats)
	return router
}
