package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/dailyoj/apiserver/config"
	"github.com/dailyoj/apiserver/internal/db"
	"github.com/dailyoj/apiserver/internal/executor"
	"github.com/dailyoj/apiserver/internal/generator"
	"github.com/dailyoj/apiserver/internal/handlers"
	"github.com/dailyoj/apiserver/internal/mq"
	"github.com/dailyoj/apiserver/internal/services"
	"github.com/dailyoj/apiserver/internal/storage"
	"github.com/dailyoj/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
}

// New constructs a Server with all dependencies wired. The submission
// archive and the verdict event broker are optional; when their
// backend is left unconfigured the corresponding feature is disabled.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	archive, err := newArchive(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	events, err := newEventBus(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	problemRepo := store.NewProblemRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)
	submissionRepo := store.NewSubmissionRepository(dbConn)

	execClient := executor.NewClient(cfg.Executor)
	provider := generator.NewGeminiProvider(cfg.Generator)

	problemService := services.NewProblemService(problemRepo, provider)
	userService := services.NewUserService(userRepo)
	submissionService := services.NewSubmissionService(submissionRepo)
	judgeService := services.NewJudgeService(problemService, submissionRepo, execClient, archive, events, cfg.Judge)

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
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/problems", func(r chi.Router) {
		handlers.ProblemRouter(r, problemService)
	})
	router.Route("/judge", func(r chi.Router) {
		handlers.JudgeRouter(r, judgeService, authMiddleware)
	})
	router.Route("/submissions", func(r chi.Router) {
		handlers.SubmissionRouter(r, submissionService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// newArchive builds the submission source archive for the configured
// backend. An empty backend disables archival.
func newArchive(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("init minio failed: %w", err)
		}
		archive := storage.NewStorage(client)
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket failed: %w", err)
		}
		return archive, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs failed: %w", err)
		}
		archive := storage.NewStorage(client)
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket failed: %w", err)
		}
		return archive, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newEventBus builds the verdict event broker for the configured
// backend. An empty backend disables event publishing.
func newEventBus(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("init rabbitmq failed: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("init pubsub failed: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.httpServer.Addr)
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
