package routes

import (
	"net/http"
	"time"

	"appispot/handlers"
	"appispot/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers account creation and login.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/register", hb.Users.RegisterHandler)
		api.POST("/login", hb.Users.LoginHandler)
	}
}

// RegisterUserRoutes registers profile endpoints.
func RegisterUserRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/users")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.UserRepo))
		api.GET("/:id", hb.Users.GetUserHandler)
		api.PUT("/:id", hb.Users.UpdateUserHandler)
		api.DELETE("/:id", hb.Users.DeleteUserHandler)
	}
}

// RegisterSpotRoutes registers listing, review and blackout endpoints.
func RegisterSpotRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/spots")
	{
		// Browsing is public.
		api.GET("", hb.Spots.ListSpotsHandler)
		api.GET("/:id", hb.Spots.GetSpotHandler)
		api.GET("/:id/reviews", hb.Spots.ListReviewsHandler)
		api.GET("/:id/blackouts", hb.Spots.ListBlackoutsHandler)

		authed := api.Group("")
		authed.Use(middleware.JWTAuthMiddleware(hb.UserRepo))
		authed.POST("/:id/reviews", hb.Spots.AddReviewHandler)

		// Listing management requires a host account.
		host := authed.Group("")
		host.Use(middleware.RequireHost(hb.UserRepo))
		host.GET("/mine", hb.Spots.MySpotsHandler)
		host.POST("", hb.Spots.CreateSpotHandler)
		host.PUT("/:id", hb.Spots.UpdateSpotHandler)
		host.POST("/:id/images", hb.Uploads.UploadSpotImageHandler)
		host.POST("/:id/blackouts", hb.Spots.AddBlackoutHandler)
		host.DELETE("/:id/blackouts/:blackoutId", hb.Spots.RemoveBlackoutHandler)
	}
}

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.UserRepo))
		api.POST("/quote", hb.Bookings.QuoteHandler)
		api.POST("", hb.Bookings.CreateBookingHandler)
		api.GET("/:id", hb.Bookings.GetBookingHandler)
		api.PATCH("/:id/status", hb.Bookings.UpdateStatusHandler)
		api.GET("/user/:userId", hb.Bookings.ListUserBookingsHandler)
		api.GET("/spot/:spotId", hb.Bookings.ListSpotBookingsHandler)
	}
}

// RegisterChatRoutes registers messaging REST endpoints plus the realtime
// websocket upgrade.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/chat")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.UserRepo))
		api.GET("/chats", hb.Chats.ListChatsHandler)
		api.POST("/chats", hb.Chats.CreateChatHandler)
		api.GET("/chats/:chatId/messages", hb.Chats.ListMessagesHandler)
		api.POST("/chats/:chatId/messages", hb.Chats.SendMessageHandler)
		api.POST("/chats/:chatId/read", hb.Chats.MarkReadHandler)
	}

	r.GET("/ws/chat", middleware.JWTAuthMiddleware(hb.UserRepo), hb.WS.ServeWS)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm appiSpot"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterAuthRoutes(r, hb)
	RegisterUserRoutes(r, hb)
	RegisterSpotRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterChatRoutes(r, hb)
}
