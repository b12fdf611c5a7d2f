package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hoas/apiserver/config"
	"github.com/hoas/apiserver/internal/cache"
	"github.com/hoas/apiserver/internal/db"
	"github.com/hoas/apiserver/internal/events"
	"github.com/hoas/apiserver/internal/handlers"
	"github.com/hoas/apiserver/internal/mq"
	"github.com/hoas/apiserver/internal/services"
	"github.com/hoas/apiserver/internal/storage"
	"github.com/hoas/apiserver/internal/store"
	"github.com/redis/go-redis/v9"
)

// Server wraps the HTTP server and its long-lived dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.Bus
	redis      *redis.Client
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus, err := mq.FromConfig(ctx, cfg.Broker)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatars, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = bus.Close()
		_ = dbConn.Close()
		return nil, err
	}

	var redisClient *redis.Client
	var statsCache services.StatsCache
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = bus.Close()
			_ = dbConn.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		statsCache = cache.NewStats(redisClient, 0)
	} else {
		log.Println("redis not configured, college stats cache disabled")
	}

	accountRepo := store.NewAccountRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	notifier := events.NewPublisher(bus)

	accountService := services.NewAccountService(accountRepo)
	userService := services.NewUserService(userRepo, notifier, statsCache)
	approvalService := services.NewApprovalService(userRepo, notifier, statsCache)
	collegeService := services.NewCollegeService(userRepo, notifier, statsCache)

	tokenTTL := time.Duration(cfg.JWT.TTLHours) * time.Hour
	authHandler := handlers.NewAuthHandler(accountService, userService, jwtSecret, tokenTTL)
	userHandler := handlers.NewUserHandler(userService, approvalService, accountService, avatars)
	collegeHandler := handlers.NewCollegeHandler(collegeService, avatars)
	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, authMiddleware)
	})
	router.Route("/colleges", func(r chi.Router) {
		handlers.CollegeRouter(r, collegeHandler, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		redis:      redisClient,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
