package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/authcore/apiserver/config"
	"github.com/authcore/apiserver/internal/db"
	"github.com/authcore/apiserver/internal/handlers"
	"github.com/authcore/apiserver/internal/logging"
	"github.com/authcore/apiserver/internal/mailer"
	"github.com/authcore/apiserver/internal/mq"
	"github.com/authcore/apiserver/internal/password"
	"github.com/authcore/apiserver/internal/services"
	"github.com/authcore/apiserver/internal/session"
	"github.com/authcore/apiserver/internal/store"
)

// Server wraps the HTTP server and its owned resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
}

// New wires the full service: database, repositories, session manager,
// mail pipeline, auth service, and router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(
		cfg.Session.Secret,
		session.WithCookieName(cfg.Session.CookieName),
		session.WithTTL(cfg.Session.TTL),
	)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	log := logging.New("apiserver")

	var (
		broker mq.Backend
		mail   mailer.Mailer
	)
	if cfg.Mail.Backend == "smtp" {
		mail = mailer.NewSMTPMailer(cfg.SMTP, cfg.Mail.From)
	} else {
		broker, err = mq.NewBackend(ctx, cfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		mail = mailer.NewQueueMailer(broker, cfg.Mail.Queue)
	}

	authService := services.NewAuthService(
		store.NewUserRepository(dbConn),
		store.NewResetCodeRepository(dbConn),
		password.NewHasher(),
		mail,
		log,
	)

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
		handlers.AuthRouter(r, authService, sessions)
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
		broker:     broker,
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

// Shutdown closes the server and its resources.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
