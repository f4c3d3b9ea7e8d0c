package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chatline/internal/auth"
	"chatline/internal/cache"
	"chatline/internal/handler"
	"chatline/internal/hub"
	"chatline/internal/middleware"
	"chatline/internal/store"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Store          store.Store
	Cache          *cache.RangeCache
	Hub            *hub.Hub
	Limiter        middleware.Limiter // nil disables rate limiting
	TokenConfig    auth.TokenConfig
	AllowedOrigins []string
	Logger         zerolog.Logger
	BcryptCost     int
}

// NewRouter builds the gin engine for the chat API and wraps it in CORS
// handling for the configured origins.
func NewRouter(deps Deps) http.Handler {
	if deps.Cache == nil {
		deps.Cache = cache.New(cache.NewMemoryBackend(), cache.Options{Logger: deps.Logger})
	}
	if deps.Hub == nil {
		deps.Hub = hub.New(hub.Options{Logger: deps.Logger})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.SecurityHeaders())

	api := r.Group("/api")
	api.Use(middleware.MaxBodySize(maxBodyBytes))
	if deps.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.Limiter, deps.Logger))
	}

	healthHandler := &handler.HealthHandler{Store: deps.Store, Cache: deps.Cache}
	api.GET("/health", healthHandler.Check)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	accounts := auth.NewService(deps.Store, deps.TokenConfig)
	if deps.BcryptCost > 0 {
		accounts.WithCost(deps.BcryptCost)
	}
	authHandler := &handler.AuthHandler{Accounts: accounts}
	api.POST("/sign-up", authHandler.SignUp)
	api.POST("/token", authHandler.Token)
	api.POST("/refresh", authHandler.Refresh)
	api.PATCH("/change-password", authHandler.ChangePassword)

	messageHandler := &handler.MessageHandler{Store: deps.Store, Cache: deps.Cache}
	protected := api.Group("")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.GET("/messages", messageHandler.List)
	protected.POST("/send-message", messageHandler.Send)
	protected.PATCH("/update-message", messageHandler.Update)
	protected.DELETE("/delete-message", messageHandler.Delete)

	wsHandler := &handler.WebSocketHandler{
		Hub:            deps.Hub,
		TokenConfig:    deps.TokenConfig,
		AllowedOrigins: deps.AllowedOrigins,
		Logger:         deps.Logger.With().Str("component", "ws").Logger(),
	}
	api.GET("/ws", wsHandler.Serve)

	return corsHandler(deps.AllowedOrigins)(r)
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Cache", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
