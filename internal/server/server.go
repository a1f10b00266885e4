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

	"github.com/diet-horizon/apiserver/config"
	"github.com/diet-horizon/apiserver/internal/db"
	"github.com/diet-horizon/apiserver/internal/handlers"
	"github.com/diet-horizon/apiserver/internal/mq"
	"github.com/diet-horizon/apiserver/internal/services"
	"github.com/diet-horizon/apiserver/internal/storage"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus, err := openMQ(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objects, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	cartRepo := store.NewCartRepository(dbConn)
	orderRepo := store.NewOrderRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)
	planRepo := store.NewPlanRepository(dbConn)

	userService := services.NewUserService(userRepo)
	orderService := services.NewOrderService(orderRepo, cartRepo, userRepo, bus)
	productService := services.NewProductService(productRepo, objects)
	planService := services.NewPlanService(planRepo, userRepo)

	authHandler := handlers.NewAuthHandler(userService, bus, jwtSecret, cfg.Auth.TokenTTL, cfg.Auth.ResetTokenTTL)
	authMiddleware := handlers.RequireAuth(jwtSecret)
	adminOnly := handlers.RequireRole(userService, types.RoleAdmin)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/products", func(r chi.Router) {
			handlers.ProductRouter(r, productService, userService, authMiddleware)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Use(authMiddleware)
			handlers.OrderRouter(r, orderService)
		})
		r.Route("/diet-plans", func(r chi.Router) {
			handlers.PlanRouter(r, planService, userService, types.PlanKindDiet, authMiddleware)
		})
		r.Route("/workout-plans", func(r chi.Router) {
			handlers.PlanRouter(r, planService, userService, types.PlanKindWorkout, authMiddleware)
		})
		r.Route("/trainer", func(r chi.Router) {
			handlers.TrainerRouter(r, planService, userService, authMiddleware)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Route("/orders", func(r chi.Router) {
				r.Use(adminOnly)
				handlers.AdminOrderRouter(r, orderService)
			})
			r.Route("/users", func(r chi.Router) {
				handlers.AdminUserRouter(r, userService)
			})
		})
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
	}, nil
}

// openMQ selects the configured broker. A nil *mq.MQ is a valid
// publisher: events are silently dropped.
func openMQ(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(cfg.Backend) {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.New(client), nil
	case "":
		log.Println("mq: no backend configured, events disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// openStorage selects the configured object store. A nil *storage.Storage
// disables image uploads.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch strings.ToLower(cfg.Backend) {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	case "":
		log.Println("storage: no backend configured, image uploads disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	s := storage.NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return s, nil
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
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
