package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joshdurbin/tinylink/internal/cache"
	"github.com/joshdurbin/tinylink/internal/cache/memory"
	"github.com/joshdurbin/tinylink/internal/config"
	"github.com/joshdurbin/tinylink/internal/logger"
	"github.com/joshdurbin/tinylink/internal/metrics"
	"github.com/joshdurbin/tinylink/internal/repository"
	"github.com/joshdurbin/tinylink/internal/repository/redis"
	"github.com/joshdurbin/tinylink/internal/repository/sqlite"
	"github.com/joshdurbin/tinylink/internal/service"
	"github.com/joshdurbin/tinylink/internal/shortener"
	"github.com/joshdurbin/tinylink/internal/transport/client"
	httpTransport "github.com/joshdurbin/tinylink/internal/transport/http"
)

var rootCmd = &cobra.Command{
	Use:   "tinylink",
	Short: "A tiny link shortening service",
	Long:  "A link shortening service with a SQLite or Redis store, click counting and a small HTTP API",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the link shortening server",
	RunE:  runServer,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

var createCmd = &cobra.Command{
	Use:   "create [URL]",
	Short: "Create a short link",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var getCmd = &cobra.Command{
	Use:   "get [CODE]",
	Short: "Get a link and its click counters",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [CODE]",
	Short: "Delete a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all links, newest first",
	RunE:  runList,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [CODE]",
	Short: "Resolve a code to its URL, counting a click",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var qrCmd = &cobra.Command{
	Use:   "qr [CODE]",
	Short: "Download the QR code PNG for a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runQR,
}

func init() {
	config.RegisterFlags(serverCmd.Flags())

	clientCmd.PersistentFlags().StringP("server-url", "u", "http://localhost:8080", "Server URL")
	createCmd.Flags().StringP("code", "c", "", "Custom code (generated when empty)")
	qrCmd.Flags().StringP("out", "o", "", "Output file (defaults to CODE.png)")
	qrCmd.Flags().Int("size", 0, "Image size in pixels (server default when 0)")

	clientCmd.AddCommand(createCmd, getCmd, deleteCmd, listCmd, resolveCmd, qrCmd)
	rootCmd.AddCommand(serverCmd, clientCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if cfg.Logging.Verbose {
		level = "debug"
	}
	if err := logger.Initialize(level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info().
		Str("port", cfg.Server.Port).
		Str("store", cfg.Store.Type).
		Dur("flush_interval", cfg.Clicks.FlushInterval).
		Msg("Starting tinylink server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return err
	}

	generator, err := shortener.NewGenerator(cfg.Shortener, repo)
	if err != nil {
		repo.Close()
		return fmt.Errorf("failed to create shortener generator: %w", err)
	}
	log.Info().Str("generator", generator.Type()).Msg("Code generator ready")

	// A nil interface value selects direct click writes
	var buffer cache.SyncableBuffer
	if cfg.Buffered() {
		buffer = memory.New()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	store := service.NewLinkStore(repo, buffer, generator, service.Options{
		MaxAttempts: cfg.Shortener.MaxAttempts,
		Metrics:     m,
	})
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing link store")
		}
	}()

	if cfg.Buffered() {
		if err := store.StartClickSync(context.Background(), cfg.Clicks.FlushInterval); err != nil {
			return fmt.Errorf("failed to start click sync: %w", err)
		}
		log.Info().Dur("interval", cfg.Clicks.FlushInterval).Msg("Buffered click sync started")
	}

	server := httpTransport.NewServer(store, httpTransport.Options{
		Port:         cfg.Server.Port,
		ServerURL:    cfg.Server.ServerURL,
		CORSOrigin:   cfg.Server.CORSOrigin,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Verbose:      cfg.Logging.Verbose,
		Metrics:      m,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during server shutdown")
		}
	}

	log.Info().Msg("Server stopped")
	return nil
}

func newRepository(ctx context.Context, cfg *config.Config) (repository.LinkRepository, error) {
	switch cfg.Store.Type {
	case config.StoreRedis:
		repo, err := redis.New(ctx, redis.Options{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		return repo, nil
	default:
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info().Str("path", cfg.Database.Path).Msg("SQLite store ready")
		return repo, nil
	}
}

func newCommands(cmd *cobra.Command) *client.Commands {
	serverURL, _ := cmd.Flags().GetString("server-url")
	return client.NewCommands(client.NewClient(serverURL), cmd.OutOrStdout())
}

func runCreate(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("code")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).Create(ctx, args[0], code)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).Get(ctx, args[0])
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).Delete(ctx, args[0])
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).List(ctx)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).Resolve(ctx, args[0])
}

func runQR(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = args[0] + ".png"
	}
	size, _ := cmd.Flags().GetInt("size")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	return newCommands(cmd).QR(ctx, args[0], out, size)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
