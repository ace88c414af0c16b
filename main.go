package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmsetu/config"
	"farmsetu/database"
	"farmsetu/handlers"
	"farmsetu/importer"
	"farmsetu/logger"
	"farmsetu/media"
	"farmsetu/middleware"
	"farmsetu/repository"
	"farmsetu/routes"
	"farmsetu/services"
	"farmsetu/storage"
	"farmsetu/upload"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "farmsetu: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:          "farmsetu",
		Short:        "FarmSetu marketplace backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.AddCommand(serve, newEnsureIndexesCmd(), newImportLocationsCmd())
	return cmd
}

// app holds what every command needs: settings, logging and the database.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *database.DB
	closer io.Closer
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.New(logger.Options{
		Level:         cfg.LogLevel,
		Dir:           cfg.LogDir,
		FluentEnabled: cfg.FluentEnabled,
		FluentHost:    cfg.FluentHost,
		FluentPort:    cfg.FluentPort,
		FluentTag:     "farmsetu",
	})
	if err != nil {
		return nil, err
	}

	db, err := database.ConnectWithRetry(ctx, log, cfg.MongoURI, cfg.MongoDatabase, 3)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, closer: closer}, nil
}

func (a *app) close() {
	if err := a.db.Disconnect(context.Background()); err != nil {
		a.log.Warn("MongoDB disconnect failed", "error", err)
	}
	_ = a.closer.Close()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := a.db.EnsureIndexes(ctx); err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg, a.db.Database, log)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(a.db.Users)
	listings := repository.NewListingRepository(a.db.Listings)
	locations := repository.NewLocationRepository(a.db.Locations)

	auth := services.NewAuthService(users, services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpire), log)
	listingService := services.NewListingService(listings, media.NewResolver(cfg.UploadRoot), log)
	locationService := services.NewLocationService(locations,
		services.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent))
	receiver := upload.NewReceiver(store, cfg.MaxUploadBytes, log)

	router := routes.SetupRouter(routes.Deps{
		Log:         log,
		Auth:        auth,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		CORSOrigins: cfg.CORSOrigins,
		Users:       handlers.NewAuthHandler(auth, log),
		Listings:    handlers.NewListingHandler(listingService, receiver, log),
		Uploads:     handlers.NewUploadHandler(receiver, log),
		Locations:   handlers.NewLocationHandler(locationService, log),
	})
	if disk, ok := store.(*storage.Disk); ok {
		router.Static(cfg.UploadRoot, disk.Base())
	}

	// Uploads of several 20MB videos need more than the default write window.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port, "storage", cfg.StorageBackend, "mode", gin.Mode())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

func newEnsureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.db.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			a.log.Info("indexes ready")
			return nil
		},
	}
}

func newImportLocationsCmd() *cobra.Command {
	var file string
	var batch int
	cmd := &cobra.Command{
		Use:   "import-locations",
		Short: "Load the postal office CSV into the locations collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			start := time.Now()
			stats, err := importer.Locations(cmd.Context(), f,
				repository.NewLocationRepository(a.db.Locations), batch, a.log)
			a.log.Info("location import finished", "read", stats.Read, "inserted", stats.Inserted,
				"skipped", stats.Skipped, "took", time.Since(start).Round(time.Millisecond))
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file with the postal office table")
	cmd.Flags().IntVar(&batch, "batch", 1000, "Rows per insert")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
