package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petermazzocco/go-dashboard/internal/ai"
	"github.com/petermazzocco/go-dashboard/internal/auth"
	"github.com/petermazzocco/go-dashboard/internal/config"
	"github.com/petermazzocco/go-dashboard/internal/database"
	"github.com/petermazzocco/go-dashboard/internal/handlers"
	"github.com/petermazzocco/go-dashboard/internal/imaging"
	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/internal/router"
	"github.com/petermazzocco/go-dashboard/internal/services"
	"github.com/petermazzocco/go-dashboard/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	skipMigrate     bool
	shutdownTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "dashboard",
	Short:        "Personal dashboard API server",
	SilenceUsage: true,
	RunE:         serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("database migrated", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not migrate the schema on startup")
		c.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Grace period for in-flight requests")
	}
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	// Redis is only used to drop duplicate chat messages.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, falling back to database dedupe", "addr", cfg.RedisAddr, "error", err)
		}
		defer rdb.Close()
	}

	var streamer ai.Streamer
	client, err := ai.NewClient(log, ai.Options{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		log.Warn("AI client disabled", "error", err)
		streamer = unavailable{model: cfg.OpenAIModel, err: err}
	} else {
		streamer = client
	}

	h := &handlers.Handler{
		Users:     services.NewUserService(db, log, cfg.BcryptCost),
		Projects:  services.NewProjectService(db, log),
		Notes:     services.NewNoteService(db, log),
		Education: services.NewEducationService(db, log),
		Chats:     services.NewChatService(db, rdb, log, streamer.Model()),
		Sessions:  auth.NewSessions(cfg.SessionSecret, cfg.SessionMaxAge, cfg.IsProduction()),
		AI:        streamer,
		Images:    imaging.NewNormalizer(),
		Log:       log,
		Ready:     pinger(db),
	}

	// Avatar originals go to R2 when configured.
	if cfg.Storage.Enabled() {
		bucket, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		h.Storage = bucket
		log.Info("avatar storage enabled", "bucket", cfg.Storage.Bucket, "endpoint", storage.Endpoint(cfg.Storage))
	}

	// OAUTH
	if !auth.UseGoogle(cfg.GoogleKey, cfg.GoogleSecret, cfg.BaseURL) {
		log.Warn("google sign-in disabled: GOOGLE_KEY or GOOGLE_SECRET not set")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(h, router.Options{
			RateLimitPerMinute:     cfg.RateLimitPerMinute,
			AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting API server", "addr", srv.Addr, "env", cfg.Env)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pinger(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// unavailable answers every chat with the configuration error.
type unavailable struct {
	model string
	err   error
}

func (u unavailable) Model() string { return u.model }

func (u unavailable) StreamChat(context.Context, string, []ai.Message, func(string) error) (string, error) {
	return "", u.err
}
