package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/config"
	"github.com/aanand-mishra/records-api/internal/http/handlers/account"
	"github.com/aanand-mishra/records-api/internal/http/handlers/health"
	"github.com/aanand-mishra/records-api/internal/http/router"
	"github.com/aanand-mishra/records-api/internal/logger"
	"github.com/aanand-mishra/records-api/internal/storage/objects"
	"github.com/aanand-mishra/records-api/internal/storage/sqldb"
	"github.com/aanand-mishra/records-api/internal/throttle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server.

Requires DB_USERNAME and DB_DBNAME for MySQL, or DB_DRIVER=sqlite3 and DB_PATH.
Redis (REDIS_ADDR), MinIO (MINIO_ENDPOINT) and MongoDB (MONGO_URI) are optional.

Example:
  records-api serve --migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		migrateFlag, _ := cmd.Flags().GetBool("migrate")
		return serve(cmd.Context(), loadConfig(), migrateFlag)
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "apply pending migrations before serving (also DB_MIGRATE_ON_START)")
	rootCmd.AddCommand(serveCmd)
}

// serve runs the server until SIGINT or SIGTERM.
//
// STARTUP SEQUENCE:
//  1. Initialise the logger
//  2. Optionally migrate, then open the shared connection pool
//  3. Connect the optional backends (Redis, MinIO, MongoDB)
//  4. Build the router
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal arrives, then shut down gracefully
func serve(ctx context.Context, cfg *config.Config, migrateFirst bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// ── 1. Initialise Logger ──────────────────────────────────────────────
	log := logger.New(cfg.Env, cfg.Log.Level)
	log.Info().
		Str("env", cfg.Env).
		Str("driver", cfg.Database.Driver).
		Msg("starting records-api")

	// ── 2. Initialise Storage ─────────────────────────────────────────────
	if migrateFirst || cfg.Database.MigrateOnStart {
		if err := migrateUp(cfg.Database); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
	}

	store, err := sqldb.Open(ctx, cfg.Database)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialise storage")
		return err
	}
	defer store.Close()
	log.Info().Int("max_open_conns", cfg.Database.MaxOpenConns).Msg("storage initialised")

	// ── 3. Optional Backends ──────────────────────────────────────────────
	var checks []health.Check
	accountOpts := account.Options{
		PlaintextPasswords: cfg.Auth.PlaintextPasswords,
		MaxImageBytes:      cfg.Auth.MaxImageBytes,
	}
	var rec audit.Recorder = audit.NewLogRecorder(log)

	if cfg.Redis.Addr != "" {
		rdb, err := throttle.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter := throttle.New(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
		accountOpts.Limiter = limiter
		checks = append(checks, health.Check{Name: "redis", Pinger: limiter})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttling enabled")
	}

	if cfg.ObjectStore.Endpoint != "" {
		images, err := objects.NewMinioStore(ctx, cfg.ObjectStore)
		if err != nil {
			return err
		}
		accountOpts.Images = images
		checks = append(checks, health.Check{Name: "object_store", Pinger: images})
		log.Info().Str("bucket", cfg.ObjectStore.Bucket).Msg("image mirroring enabled")
	}

	if cfg.Mongo.URI != "" {
		client, err := audit.NewMongoClient(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mongoRec := audit.NewMongoRecorder(client.Database(cfg.Mongo.Database))
		rec = mongoRec
		checks = append(checks, health.Check{Name: "audit", Pinger: mongoRec})
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit events go to mongodb")
	}
	accountOpts.Audit = rec

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	handler := router.New(router.Deps{
		Env:            cfg.Env,
		Logger:         log,
		Store:          store,
		Audit:          rec,
		Account:        accountOpts,
		AllowedOrigins: cfg.HTTPServer.CORSAllowedOrigins,
		HealthChecks:   checks,
	})

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 5. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe returns http.ErrServerClosed after Shutdown; that is
	// the normal way out, anything else ends serve with an error.
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", server.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case <-done:
		log.Info().Msg("shutdown signal received, stopping server...")
	case err, ok := <-serverErr:
		if ok {
			log.Error().Err(err).Msg("server encountered an error")
			return err
		}
	}

	return shutdown(server, cfg.HTTPServer, log)
}

// shutdown stops accepting connections and waits for in-flight requests
// up to the configured deadline.
func shutdown(server *http.Server, cfg config.HTTPServer, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
		return err
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}
