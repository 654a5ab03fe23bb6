package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/exp/slog"

	"github.com/jonanatree/medipay/internal/middleware"
	"github.com/jonanatree/medipay/internal/paypal"
)

// App is the main application. It owns the HTTP server and is responsible
// for starting and stopping it.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "medipay"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	if a.config.PayPal.ClientID == "" || a.config.PayPal.Secret == "" {
		return fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_SECRET are required")
	}

	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(a.logger))
	// Order flow and prescription rendering are independent failure
	// domains; a panic in one handler must not take the process down.
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	payments := paypal.New(
		a.config.PayPal.APIBase,
		paypal.Credentials{ClientID: a.config.PayPal.ClientID, Secret: a.config.PayPal.Secret},
		&http.Client{Timeout: a.config.PayPal.Timeout},
	)

	api := NewAPI(a.logger, payments, a.config.AppBaseURL)
	api.AppendRoutes(router)

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler: router,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	a.srv.Shutdown(context.Background())

	a.wg.Wait()

	a.logger.Info("app stopped")
}
