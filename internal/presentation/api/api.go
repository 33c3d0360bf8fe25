package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/focusritual/collab/internal/infrastructure/configs"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/ratelimiter"
	filesHandler "github.com/focusritual/collab/internal/presentation/handler/files"
	"github.com/focusritual/collab/internal/presentation/handler/health"
	roomsHandler "github.com/focusritual/collab/internal/presentation/handler/rooms"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config       *configs.Config
	roomsHandler *roomsHandler.Handler
	filesHandler *filesHandler.Handler
	logger       logging.Logger
	ratelimiter  ratelimiter.Limiter
}

func NewApplication(
	config *configs.Config,
	roomsHandler *roomsHandler.Handler,
	filesHandler *filesHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:       config,
		roomsHandler: roomsHandler,
		filesHandler: filesHandler,
		logger:       logger,
		ratelimiter:  ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.loggerMiddleware)
	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", app.roomsHandler.CreateRoomHandler)
			r.Get("/", app.roomsHandler.ListRoomsHandler)
			r.Get("/{roomId}/join", app.roomsHandler.JoinRoomHandler)

			r.Post("/{roomId}/files", app.filesHandler.UploadFileHandler)
			r.Get("/{roomId}/files", app.filesHandler.ListFilesHandler)
			r.Get("/{roomId}/files/{fileId}", app.filesHandler.DownloadFileHandler)
		})

		r.Get("/health", health.GetHealthHandler)
		r.Get("/healthz", health.GetHealthHandler)
		r.Get("/ready", health.GetHealthHandler)
		r.Get("/live", health.GetHealthHandler)
	})

	r.Handle("/metrics", promhttp.Handler())

	var mux http.Handler = r
	if app.config.Tracing.Enabled {
		mux = otelhttp.NewHandler(mux, "http.server")
	}
	return mux
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infof("signal caught: %s", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
