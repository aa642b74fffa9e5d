package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/canopy-web/canopy/internal/adapter/inbound/http"
	"github.com/canopy-web/canopy/internal/adapter/outbound/memory"
	"github.com/canopy-web/canopy/internal/adapter/outbound/redis"
	"github.com/canopy-web/canopy/internal/adapter/outbound/sqlite"
	"github.com/canopy-web/canopy/internal/config"
	"github.com/canopy-web/canopy/internal/domain/auth"
	"github.com/canopy-web/canopy/internal/domain/cors"
	"github.com/canopy-web/canopy/internal/domain/session"
	"github.com/canopy-web/canopy/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start the canopy server with the configured session and user
backends. The built-in authentication routes are always mounted; add
application routes by embedding canopy as a library.`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, error details in responses)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load without validation so the --dev flag can apply first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logLevel := cfg.Server.SlogLevel()
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop() // Restore default: next Ctrl+C = immediate exit.
	}()

	transportOpts := []http.Option{
		http.WithAddr(cfg.Server.Addr),
		http.WithLogger(logger),
	}
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		transportOpts = append(transportOpts, http.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey))
	}

	users, cleanupUsers, err := buildUserStore(cfg, &transportOpts)
	if err != nil {
		return err
	}
	defer cleanupUsers()

	if err := seedUsers(ctx, cfg, users, logger); err != nil {
		return err
	}

	sessions, cleanupSessions, err := buildSessionStore(ctx, cfg, &transportOpts)
	if err != nil {
		return err
	}
	defer cleanupSessions()

	rules, err := cors.NewRuleSet(cfg.CORS)
	if err != nil {
		return fmt.Errorf("failed to compile CORS rules: %w", err)
	}

	registry, err := service.BuildRegistry(users, logger)
	if err != nil {
		return fmt.Errorf("failed to build route registry: %w", err)
	}

	dispatcher := http.NewDispatcher(registry, sessions,
		http.WithCORS(rules),
		http.WithCookieName(cfg.Session.CookieName),
		http.WithHandlerTimeout(cfg.Server.HandlerTimeout),
		http.WithDispatchLogger(logger),
		http.WithDevMode(cfg.DevMode),
	)

	transport := http.NewHTTPTransport(dispatcher, transportOpts...)

	logger.Info("starting canopy",
		"addr", cfg.Server.Addr,
		"session_backend", cfg.Session.Backend,
		"users_backend", cfg.Users.Backend,
		"cors_rules", rules.Len(),
		"dev_mode", cfg.DevMode,
	)
	return transport.Start(ctx)
}

// buildUserStore constructs the configured account backend and appends
// its health check to the transport options.
func buildUserStore(cfg *config.Config, transportOpts *[]http.Option) (auth.UserStore, func(), error) {
	switch cfg.Users.Backend {
	case "sqlite":
		store, err := sqlite.Open(cfg.Users.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open user database: %w", err)
		}
		*transportOpts = append(*transportOpts, http.WithHealthCheck("users", store))
		return store, func() { _ = store.Close() }, nil
	default:
		return memory.NewUserStore(), func() {}, nil
	}
}

// buildSessionStore constructs the configured session backend. The
// in-memory backend starts its sweep goroutine and exposes the session
// gauge; redis exposes a health check instead.
func buildSessionStore(ctx context.Context, cfg *config.Config, transportOpts *[]http.Option) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		store := redis.NewSessionStore(client, cfg.Session.Redis.KeyPrefix, cfg.Session.TTL)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis session backend unreachable: %w", err)
		}

		*transportOpts = append(*transportOpts, http.WithHealthCheck("sessions", store))
		return store, func() { _ = client.Close() }, nil
	default:
		store := memory.NewSessionStore(cfg.Session.TTL)
		store.StartCleanup(ctx)
		*transportOpts = append(*transportOpts, http.WithSessionCount(store.Count))
		return store, store.Stop, nil
	}
}

// seedUsers creates the configured bootstrap accounts. Existing
// accounts are left untouched.
func seedUsers(ctx context.Context, cfg *config.Config, users auth.UserStore, logger *slog.Logger) error {
	for _, seed := range cfg.Users.Seed {
		roles := make([]auth.Role, len(seed.Roles))
		for i, r := range seed.Roles {
			roles[i] = auth.Role(r)
		}
		user, err := auth.NewUser(seed.Username, seed.Password, roles, seed.Extra)
		if err != nil {
			return fmt.Errorf("failed to prepare seed user %q: %w", seed.Username, err)
		}
		err = users.CreateUser(ctx, user)
		if errors.Is(err, auth.ErrUserExists) {
			logger.Debug("seed user already exists", "username", seed.Username)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create seed user %q: %w", seed.Username, err)
		}
		logger.Info("created seed user", "username", seed.Username, "roles", seed.Roles)
	}
	return nil
}
