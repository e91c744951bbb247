package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iheejigoro/apiserver/config"
	"github.com/iheejigoro/apiserver/internal/auth"
	"github.com/iheejigoro/apiserver/internal/db"
	"github.com/iheejigoro/apiserver/internal/handlers"
	"github.com/iheejigoro/apiserver/internal/logging"
	"github.com/iheejigoro/apiserver/internal/mq"
	"github.com/iheejigoro/apiserver/internal/services"
	"github.com/iheejigoro/apiserver/internal/storage"
	"github.com/iheejigoro/apiserver/internal/store"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	media      storage.MediaHost
	logger     *slog.Logger
}

// routeDeps is everything the router needs besides middleware settings.
type routeDeps struct {
	users       handlers.UserService
	products    handlers.ProductService
	tokens      handlers.TokenVerifier
	health      handlers.Pinger
	corsOrigins []string
	logger      *slog.Logger
}

// New connects the database, media host and event broker and builds the
// router. Everything opened here is released by Shutdown.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	media, err := storage.NewMediaHost(ctx, cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("init media host: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, errors.Join(err, closeMedia(media))
	}

	broker, err := mq.NewFromConfig(ctx, cfg.Events)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init events: %w", err), dbConn.Close(), closeMedia(media))
	}

	var events *services.Events
	if broker != nil {
		events = services.NewEvents(broker, cfg.Events.Channel, logger)
	} else {
		logger.Info("domain events disabled")
	}

	userRepo := store.NewUserRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)

	userService := services.NewUserService(userRepo, hasher, tokens, media, events, cfg.Media.Folder, logger)
	productService := services.NewProductService(productRepo, media, events, cfg.Media.Folder, logger)

	router := newRouter(routeDeps{
		users:       userService,
		products:    productService,
		tokens:      tokens,
		health:      dbConn,
		corsOrigins: cfg.CORSOrigins,
		logger:      logger,
	})

	return &Server{
		httpServer: newHTTPServer(cfg, router),
		router:     router,
		db:         dbConn,
		mq:         broker,
		media:      media,
		logger:     logger,
	}, nil
}

func newHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// closeMedia releases hosts that hold a client, such as GCS.
func closeMedia(media storage.MediaHost) error {
	closer, ok := media.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("close media: %w", err)
	}
	return nil
}

func newRouter(deps routeDeps) *chi.Mux {
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}
	authMiddleware := handlers.RequireAuth(deps.tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(logger),
		middleware.Timeout(requestTimeout),
		cors(deps.corsOrigins),
		securityHeaders,
	)
	router.Get("/healthz", handlers.Healthz(deps.health))
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, deps.users, authMiddleware, logger)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, deps.products, authMiddleware, logger)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker, database and
// media client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mq: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if err := closeMedia(s.media); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
