package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"momentum-screener/config"
	"momentum-screener/internal/auth"
	"momentum-screener/internal/database"
	"momentum-screener/internal/events"
	"momentum-screener/internal/screener"
	"momentum-screener/internal/vault"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	screener    *screener.Screener
	repo        *database.Repository // nil when persistence is disabled
	eventBus    *events.EventBus
	authService *auth.Service // nil when auth is disabled
	vaultClient *vault.Client // nil when vault is disabled
	wsHub       *WSHub
	rateLimiter *RateLimiter
	cfg         config.ServerConfig
	dataCfg     config.DataConfig
	logger      zerolog.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	dataCfg config.DataConfig,
	scr *screener.Screener,
	repo *database.Repository,
	eventBus *events.EventBus,
	authService *auth.Service,
	vaultClient *vault.Client,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		screener:    scr,
		repo:        repo,
		eventBus:    eventBus,
		authService: authService,
		vaultClient: vaultClient,
		wsHub:       NewWSHub(logger),
		rateLimiter: NewRateLimiter(120, time.Minute),
		cfg:         cfg,
		dataCfg:     dataCfg,
		logger:      logger,
	}

	server.wsHub.AttachBus(eventBus)
	go server.wsHub.Run()
	server.setupRoutes()

	return server
}

// rateLimitMiddleware limits requests by endpoint path
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.rateLimiter.Allow(path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"path":  path,
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.wsHub.handleWebSocket)

	s.router.GET("/api/auth/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"auth_enabled": s.authService != nil})
	})
	if s.authService != nil {
		s.router.POST("/api/auth/login", s.handleLogin)
	}

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	if s.authService != nil {
		api.Use(auth.Middleware(s.authService))
	}

	api.GET("/symbols", s.handleListSymbols)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/simulate", s.handleSimulate)

	api.POST("/scans", s.handleStartScan)
	api.GET("/scans/:id", s.handleGetScan)
	api.DELETE("/scans/:id", s.handleCancelScan)

	if s.repo != nil {
		api.GET("/watchlist", s.handleGetWatchlist)
		api.POST("/watchlist", s.handleAddWatchlist)
		api.DELETE("/watchlist/:symbol", s.handleRemoveWatchlist)
		api.GET("/results", s.handleRecentResults)
		api.GET("/runs", s.handleRecentRuns)
	}

	if s.vaultClient != nil {
		api.GET("/credentials/:provider", s.handleGetCredentials)
		api.POST("/credentials", s.handleStoreCredentials)
	}
}

// Start runs the HTTP server until the listener fails
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
