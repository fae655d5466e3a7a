package router

import (
	"log/slog"
	"net/http"

	"thicket/internal/handlers"
	"thicket/internal/middleware"
	"thicket/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionName = "thicket_session"

// New builds the engine with middleware and every route. secure marks the
// session cookie HTTPS-only.
func New(svc *services.Service, sessionSecret string, secure bool, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(svc))

	RegisterRoutes(r, svc)
	return r
}

func RegisterRoutes(r *gin.Engine, svc *services.Service) {
	authHandler := handlers.NewAuthHandler(svc)
	storyHandler := handlers.NewStoryHandler(svc)
	userHandler := handlers.NewUserHandler(svc)
	saveHandler := handlers.NewSaveHandler(svc)
	notificationHandler := handlers.NewNotificationHandler(svc)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// public
	r.GET("/trending", storyHandler.Trending)
	r.GET("/c/:handle", storyHandler.Detail)
	r.GET("/u/:id", userHandler.Profile)

	r.POST("/signup", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)

	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", userHandler.Me)
		authorized.PATCH("/me", userHandler.UpdateSettings)

		authorized.POST("/threads", storyHandler.CreateThread)
		authorized.POST("/c/:handle/replies", storyHandler.CreateReply)
		authorized.PATCH("/c/:handle", storyHandler.Update)
		authorized.DELETE("/c/:handle", storyHandler.Delete)

		authorized.POST("/c/:handle/save", saveHandler.Save)
		authorized.DELETE("/c/:handle/save", saveHandler.Unsave)

		authorized.POST("/u/:id/follow", userHandler.Follow)
		authorized.DELETE("/u/:id/follow", userHandler.Unfollow)

		authorized.GET("/feed/:kind", storyHandler.Feed)

		authorized.GET("/notifications", notificationHandler.Counters)
		authorized.POST("/notifications/:kind/seen", notificationHandler.MarkSeen)
	}
}
