package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/CageChen/dotwalk/internal/config"
	"github.com/CageChen/dotwalk/internal/logging"
)

// NewRouter wires every API route onto a new gin engine.
func NewRouter(cfg *config.Config, ws *WSHandler, log zerolog.Logger) *gin.Engine {
	roots := NewRoots(cfg)
	rootsHandler := NewRootsHandler(roots, log)
	browseHandler := NewBrowseHandler(roots, cfg, log)
	fileHandler := NewFileHandler(roots, cfg, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(log))
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		// Folder management
		api.GET("/roots", rootsHandler.GetRoots)
		api.POST("/roots", rootsHandler.AddRoot)
		api.DELETE("/roots", rootsHandler.RemoveRoot)

		// Browsing
		api.GET("/list/*path", browseHandler.List)
		api.GET("/search/*path", browseHandler.Search)
		api.GET("/tree/*path", browseHandler.Tree)
		api.GET("/info/*path", browseHandler.Info)
		api.GET("/files/*path", fileHandler.GetFile)
		api.GET("/raw/*path", fileHandler.GetRaw)

		if ws != nil {
			api.GET("/ws", ws.HandleWS)
		}
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
