package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/sanitizr/internal/config"
	"github.com/roach88/sanitizr/internal/store"
	"github.com/roach88/sanitizr/internal/transport"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Database  string
	SchemaDir string

	// Ready is called with the listen address once the server accepts
	// connections (for testing).
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve records over HTTP and websocket",
		Long: `Start the HTTP API. Records are stored in SQLite and every response
and push message is sanitized for the requesting user class, read from the
X-User-Class header.

With redis enabled, pushes are published on redis and relayed to the local
websocket clients of every instance.

Example:
  sanitizr serve --addr :8080 --db ./sanitizr.db --schema ./types
  sanitizr serve --config ./sanitizr.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE type definitions (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := commandLogger(opts.RootOptions, cmd)
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	if opts.SchemaDir != "" {
		cfg.Schema.Dir = opts.SchemaDir
	}

	logger.Info("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	registry, err := loadRegistry(cfg.Schema.Dir, cfg, st, logger)
	if err != nil {
		return err
	}
	logger.Info("types loaded", "dir", cfg.Schema.Dir, "types", registry.Names())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := transport.NewMetrics("sanitizr", promRegistry)

	hubOpts := []transport.HubOption{
		transport.WithHubLogger(logger),
		transport.WithHubMetrics(metrics),
	}
	if check := originChecker(cfg.Server.AllowedOrigins); check != nil {
		hubOpts = append(hubOpts, transport.WithCheckOrigin(check))
	}
	hub := transport.NewHub(hubOpts...)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var broadcaster transport.Broadcaster = hub
	relayDone := make(chan struct{})
	if cfg.Redis.Enabled {
		rb, closeRedis, err := startRedis(ctx, cfg.Redis, hub, logger, relayDone)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to redis", err)
		}
		defer closeRedis()
		broadcaster = rb
	} else {
		close(relayDone)
	}

	conductor := transport.NewConductor(broadcaster,
		transport.WithMetrics(metrics),
		transport.WithMaxDepth(cfg.Sanitize.MaxDepth),
		transport.WithLogger(logger),
	)
	router := transport.NewRouter(transport.RouterConfig{
		Conductor: conductor,
		Registry:  registry,
		Store:     st,
		Hub:       hub,
		Gatherer:  promRegistry,
		Logger:    logger,
	})

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	addr := listener.Addr().String()
	logger.Info("server started", "addr", addr, "redis", cfg.Redis.Enabled)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case err := <-serveErr:
		stop()
		<-hubDone
		<-relayDone
		return WrapExitError(ExitFailure, "server error", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	<-hubDone
	<-relayDone

	logger.Info("server stopped gracefully")
	return nil
}

// startRedis connects to redis and relays published messages into hub until
// ctx is cancelled. relayDone is closed when the relay returns.
func startRedis(ctx context.Context, cfg config.RedisConfig, hub *transport.Hub, logger *slog.Logger, relayDone chan struct{}) (*transport.RedisBroadcaster, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	rb := transport.NewRedisBroadcaster(client, cfg.Prefix, logger)
	go func() {
		defer close(relayDone)
		if err := rb.Relay(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("redis relay stopped", "error", err)
		}
	}()
	logger.Info("redis connected", "addr", cfg.Addr, "prefix", cfg.Prefix)

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("error closing redis client", "error", err)
		}
	}
	return rb, closeFn, nil
}

// originChecker accepts same-origin requests plus the listed origins. "*"
// accepts any origin. An empty list keeps the upgrader's default check.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
