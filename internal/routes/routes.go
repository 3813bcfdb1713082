package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voxcraft/voxcraft-golang/internal/handlers"
	"github.com/voxcraft/voxcraft-golang/internal/middleware"
)

// CORSMiddleware tells the browser the local Next.js frontend may talk
// to us, including the Authorization header it sends on every call.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// The browser's preflight OPTIONS request gets an empty 204.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// CORS must run before anything else touches the request.
	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			auth.GET("/profile/me", h.GetProfile)
			auth.GET("/credits", h.GetCredits)

			// --- Generation Routes ---
			auth.POST("/speech/generate", h.GenerateSpeech)
			auth.POST("/voice/convert", h.ConvertVoice)
			auth.POST("/audio/generate", h.GenerateAudio)
			auth.POST("/speech/transcribe", h.TranscribeAudio)

			// --- History ---
			auth.GET("/history/:service", h.GetHistory)
		}
	}

	return router
}
