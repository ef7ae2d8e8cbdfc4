package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"kbchat/controllers"
	"kbchat/middlewares"
)

// SetupRouter builds the gin engine with all routes and middleware attached.
func SetupRouter(kb *controllers.KBController, cfg *controllers.ConfigController, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.Logger(logger))
	r.Use(middlewares.CORS())

	r.POST("/kb", kb.HandleKB)
	r.GET("/config.json", cfg.HandleConfig)
	r.GET("/healthz", controllers.HandleHealth)

	return r
}
