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
	"github.com/leavedesk/apiserver/config"
	"github.com/leavedesk/apiserver/internal/db"
	"github.com/leavedesk/apiserver/internal/directory"
	"github.com/leavedesk/apiserver/internal/handlers"
	"github.com/leavedesk/apiserver/internal/identity"
	"github.com/leavedesk/apiserver/internal/notify"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/internal/storage"
	"github.com/leavedesk/apiserver/internal/store"
)

// Server wraps the HTTP server and its long-lived dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *notify.Events
}

// New constructs a Server: database, optional broker and object storage
// backends, services and routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	events, err := buildEvents(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		_ = events.Close()
		return nil, err
	}
	if archive.Enabled() {
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Printf("server: ensure report bucket: %v", err)
		}
	}

	var dir directory.Directory
	if cfg.Directory.BaseURL != "" {
		client, err := directory.NewRESTClient(cfg.Directory.BaseURL, cfg.Directory.Token)
		if err != nil {
			_ = dbConn.Close()
			_ = events.Close()
			return nil, err
		}
		dir = client
	}

	userRepo := store.NewUserRepository(dbConn)
	leaveRepo := store.NewLeaveRepository(dbConn)

	saga := services.NewProvisionSaga(dir)
	userService := services.NewUserService(userRepo, saga, events)
	hierarchyService := services.NewHierarchyService(userRepo, events)
	leaveService := services.NewLeaveService(leaveRepo, userRepo, events)
	reportService := services.NewReportService(leaveRepo, userRepo, archive)

	tokens := identity.NewJWTResolver(jwtSecret)
	authMiddleware := handlers.RequireAuth(tokens, userService)

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
		handlers.AuthRouter(r, userService, tokens)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, hierarchyService, authMiddleware)
	})
	router.Route("/leave-requests", func(r chi.Router) {
		handlers.LeaveRouter(r, leaveService, authMiddleware)
	})
	router.Route("/reports", func(r chi.Router) {
		handlers.ReportRouter(r, reportService, authMiddleware)
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
		events:     events,
	}, nil
}

func buildEvents(ctx context.Context, cfg config.Config) (*notify.Events, error) {
	switch cfg.Broker.Backend {
	case "rabbitmq":
		backend, err := notify.NewRabbitMQBackend(cfg.Broker.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return notify.New(backend), nil
	case "pubsub":
		backend, err := notify.NewPubSubBackend(ctx, cfg.Broker.PubSub)
		if err != nil {
			return nil, err
		}
		return notify.New(backend), nil
	case "":
		return notify.New(nil), nil
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Broker.Backend)
	}
}

func buildArchive(ctx context.Context, cfg config.Config) (*storage.Archive, error) {
	switch cfg.Storage.Backend {
	case "minio":
		backend, err := storage.NewMinioStore(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewArchive(backend), nil
	case "gcs":
		backend, err := storage.NewGCSStore(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewArchive(backend), nil
	case "":
		return storage.NewArchive(nil), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
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
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
