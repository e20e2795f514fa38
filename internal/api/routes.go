package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the Gin router with all routes. templateGlob and
// staticDir are parameters so tests can point at the repo-relative assets.
func SetupRoutes(handlers *Handlers, templateGlob, staticDir string) *gin.Engine {
	router := gin.Default()

	router.Use(corsMiddleware())
	router.LoadHTMLGlob(templateGlob)
	router.Static("/static", staticDir)

	router.GET("/", handlers.Index)
	router.POST("/upload", handlers.Upload)
	router.GET("/result/:taskId", handlers.ResultPage)
	router.GET("/download/:taskId/:filename", handlers.Download)

	api := router.Group("/api")
	{
		api.POST("/ocr", handlers.OCRSync)
		api.GET("/status/:taskId", handlers.TaskStatus)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
