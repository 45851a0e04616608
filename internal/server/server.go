package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ory/graceful"
	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/auth"
	"github.com/charismamove/apiserver/internal/cache"
	"github.com/charismamove/apiserver/internal/db"
	"github.com/charismamove/apiserver/internal/handlers"
	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/metrics"
	"github.com/charismamove/apiserver/internal/notify"
	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/internal/storage"
	"github.com/charismamove/apiserver/internal/store"
)

// DefaultJWTSecret signs tokens when JWT_SECRET is unset.
const DefaultJWTSecret = "secret"

// Server wraps the HTTP server, router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []func()
	log        *logrus.Entry
}

// New connects the database and the optional backends, then assembles the
// services and the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logging.Component("server")
	s := &Server{log: log}

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(cfg.Database); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("database migrations applied")
	}

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.closers = append(s.closers, func() { _ = conn.Close() })

	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		log.Warn("JWT_SECRET is not set, using the insecure default secret")
		secret = DefaultJWTSecret
	}

	dispatcher, closeNotify, err := notify.Setup(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("setup notifications: %w", err)
	}
	s.closers = append(s.closers, closeNotify)

	var announcementCache services.AnnouncementCache
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		announcementCache = cache.NewAnnouncements(client, cfg.Redis.CacheTTL)
		log.WithField("ttl", cfg.Redis.CacheTTL).Info("announcement cache enabled")
	}

	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}

	userRepo := store.NewUserRepository(conn)
	itemRepo := store.NewItemRepository(conn)
	bookingRepo := store.NewBookingRepository(conn)
	announcementRepo := store.NewAnnouncementRepository(conn)

	policy := services.ParseConfirmPolicy(cfg.Booking.ConfirmPolicy)
	authService := services.NewAuthService(userRepo, auth.NewIssuer(secret, cfg.Auth.TokenTTL))
	svc := handlers.Services{
		Auth:          authService,
		Users:         services.NewUserService(userRepo),
		Items:         services.NewItemService(itemRepo),
		Bookings:      services.NewBookingService(bookingRepo, dispatcher, policy),
		Announcements: services.NewAnnouncementService(announcementRepo, announcementCache),
		Admin:         services.NewAdminService(userRepo, itemRepo, bookingRepo, announcementRepo, archive),
	}
	log.WithField("policy", policy).Info("booking confirmation policy")

	if created, err := authService.BootstrapAdmin(ctx, cfg.Admin); err != nil {
		s.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	} else if created && cfg.Admin.Password == "admin123" {
		log.Warn("admin account created with the default password, change ADMIN_PASSWORD")
	}

	s.router = NewRouter(cfg.CORS, svc)

	port := cfg.ServerPort
	if port == 0 {
		port = 3001
	}
	s.httpServer = graceful.WithDefaults(&http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	})

	return s, nil
}

// NewRouter mounts the middleware stack, the API routes, the API reference
// and the operational endpoints.
func NewRouter(corsCfg config.CORSConfig, svc handlers.Services) *chi.Mux {
	metrics.Register()

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.AccessLog,
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins: corsCfg.Origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition", "X-Archive-Location"},
			MaxAge:         300,
		}),
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	routes := handlers.Routes(svc)
	handlers.Mount(router, routes, svc.Auth)
	router.Route("/api-docs", func(r chi.Router) {
		handlers.DocsRouter(r, routes)
	})

	return router
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then drains connections and
// releases the owned resources.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("listening")
	defer s.Close()
	return graceful.Graceful(s.httpServer.ListenAndServe, s.httpServer.Shutdown)
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.Close()
	return err
}

// Close releases resources in reverse acquisition order.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
