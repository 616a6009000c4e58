package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/bookworm-labs/books-api/internal/audit"
	"github.com/bookworm-labs/books-api/internal/config"
	"github.com/bookworm-labs/books-api/internal/handler"
	"github.com/bookworm-labs/books-api/internal/middleware"
	"github.com/bookworm-labs/books-api/internal/ratelimit"
	"github.com/bookworm-labs/books-api/internal/repository"
	"github.com/bookworm-labs/books-api/internal/service"
	"github.com/bookworm-labs/books-api/internal/storage"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	postgres *storage.Postgres

	counterStore  ratelimit.CounterStore
	bufferedStore *audit.BufferedStore
	stopRetention func()

	authHandler   *handler.AuthHandler
	auditHandler  *handler.AuditHandler
	authorHandler *handler.AuthorHandler
	bookHandler   *handler.BookHandler
	authService   *service.AuthService

	httpServer *http.Server
}

func New(cfg *config.Config, postgres *storage.Postgres) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Admission control
	policies, err := ratelimit.NewPolicyStore(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	counterStore := ratelimit.NewMemoryStore(ratelimit.MemoryStoreOptions{
		TTL:           time.Duration(cfg.RateLimit.CounterTTL) * time.Second,
		SweepInterval: time.Duration(cfg.RateLimit.SweepInterval) * time.Second,
	})
	limiter := ratelimit.New(policies, counterStore)
	strategy := ratelimit.ParseStrategy(cfg.RateLimit.Strategy)

	// Audit trail
	auditRepo := repository.NewAuditLogRepository(postgres)

	var auditStore audit.Store = auditRepo
	var bufferedStore *audit.BufferedStore
	if cfg.Audit.BufferSize > 0 {
		bufferedStore = audit.NewBufferedStore(auditRepo, cfg.Audit.BufferSize)
		auditStore = bufferedStore
	}
	recorder := audit.NewRecorder(auditStore, cfg.Audit)

	auditService := service.NewAuditService(auditRepo)

	// Auth
	userRepo := repository.NewUserRepository(postgres)
	authService := service.NewAuthService(userRepo, cfg.Auth.Secret, cfg.Auth.ExpiryHours)

	// Domain
	authorRepo := repository.NewAuthorRepository(postgres)
	bookRepo := repository.NewBookRepository(postgres)

	s := &Server{
		router:        router,
		config:        cfg,
		postgres:      postgres,
		counterStore:  counterStore,
		bufferedStore: bufferedStore,
		authHandler:   handler.NewAuthHandler(authService),
		auditHandler:  handler.NewAuditHandler(auditService),
		authorHandler: handler.NewAuthorHandler(authorRepo),
		bookHandler:   handler.NewBookHandler(bookRepo, authorRepo),
		authService:   authService,
	}

	// Stage order is the contract: rate limiting admits first, then the
	// audit stage wraps everything downstream so a completion entry is
	// written on every exit path, including auth rejections. 429s are
	// the one exception: the rate-limit stage records those itself as
	// violation entries.
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimit(limiter, strategy, cfg.RateLimit.ResponseHeaders, recorder))
	router.Use(middleware.Audit(recorder, cfg.Audit))
	router.Use(middleware.Auth(authService))

	s.setupRoutes()

	if cfg.Audit.RetentionDays > 0 {
		s.stopRetention = auditService.StartRetentionWorker(cfg.Audit.RetentionDays, 12*time.Hour)
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/auth/login", s.authHandler.Login)

		authors := api.Group("/authors")
		{
			authors.GET("", s.authorHandler.List)
			authors.POST("", s.authorHandler.Create)
			authors.GET("/:id", s.authorHandler.Get)
			authors.PUT("/:id", s.authorHandler.Update)
			authors.DELETE("/:id", s.authorHandler.Delete)
		}

		books := api.Group("/books")
		{
			books.GET("", s.bookHandler.List)
			books.POST("", s.bookHandler.Create)
			books.GET("/:id", s.bookHandler.Get)
			books.PUT("/:id", s.bookHandler.Update)
			books.DELETE("/:id", s.bookHandler.Delete)
		}

		auditGroup := api.Group("/audit", middleware.RequireRole("admin"))
		{
			auditGroup.GET("", s.auditHandler.Search)
			auditGroup.GET("/rate-limit-alerts", s.auditHandler.RateLimitAlerts)
			auditGroup.GET("/metrics", s.auditHandler.Metrics)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "books-api",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"database": dbHealthy,
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting books API on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if s.stopRetention != nil {
		s.stopRetention()
	}
	if s.counterStore != nil {
		s.counterStore.Close()
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Flush buffered audit entries after in-flight requests finished.
	if s.bufferedStore != nil {
		s.bufferedStore.Close()
	}

	return err
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) AuthService() *service.AuthService {
	return s.authService
}
