package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sharetube/together/internal/controller"
	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/repository/connection/inmemory"
	"github.com/sharetube/together/internal/repository/directory"
	dirInmemory "github.com/sharetube/together/internal/repository/directory/inmemory"
	dirRedis "github.com/sharetube/together/internal/repository/directory/redis"
	"github.com/sharetube/together/internal/service/room"
	"github.com/sharetube/together/pkg/ctxlogger"
	"github.com/sharetube/together/pkg/redisclient"
	"github.com/sharetube/together/pkg/sessionlink"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Secret             string        `json:"-"`
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	LogLevel           string        `json:"log_level"`
	PublicURL          string        `json:"public_url"`
	HeartbeatTimeout   time.Duration `json:"heartbeat_timeout"`
	GracePeriod        time.Duration `json:"grace_period"`
	StalenessTolerance time.Duration `json:"staleness_tolerance"`
	MembersLimit       int           `json:"members_limit"`
	RedisHost          string        `json:"redis_host"`
	RedisPort          int           `json:"redis_port"`
	RedisPassword      string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if _, err := sessionlink.New(cfg.PublicURL); err != nil {
		return fmt.Errorf("public url: %w", err)
	}
	if cfg.HeartbeatTimeout <= 0 {
		return errors.New("heartbeat timeout must be positive")
	}
	if cfg.GracePeriod <= 0 {
		return errors.New("grace period must be positive")
	}
	if cfg.StalenessTolerance <= 0 {
		return errors.New("staleness tolerance must be positive")
	}
	if cfg.MembersLimit < 0 {
		return errors.New("members limit must not be negative")
	}
	if cfg.RedisHost != "" && (cfg.RedisPort < 1 || cfg.RedisPort > 65535) {
		return errors.New("redis port must be between 1 and 65535")
	}

	return nil
}

func parseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return l, nil
}

func newLogger(level slog.Level) *slog.Logger {
	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}),
	}

	return slog.New(&h)
}

type directoryStore interface {
	hub.Directory
	Get(context.Context, string) (directory.Summary, error)
}

// newDirectory picks Redis when a host is configured and process memory
// otherwise. Entries outlive a room's last summary by the grace period.
func newDirectory(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (directoryStore, func(), error) {
	ttl := cfg.GracePeriod + cfg.HeartbeatTimeout

	if cfg.RedisHost == "" {
		logger.InfoContext(ctx, "using in-memory room directory")
		return dirInmemory.NewRepo(ttl), func() {}, nil
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	logger.InfoContext(ctx, "using redis room directory", "host", cfg.RedisHost, "port", cfg.RedisPort)

	return dirRedis.NewRepo(rc, ttl, logger), func() { rc.Close() }, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel, _ := parseLogLevel(cfg.LogLevel)
	logger := newLogger(logLevel)

	dir, closeDir, err := newDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDir()

	links, err := sessionlink.New(cfg.PublicURL)
	if err != nil {
		return err
	}

	publisher := hub.NewPublisher(dir, 0, logger)
	registry := hub.NewRegistry(hub.Config{
		HeartbeatTimeout:   cfg.HeartbeatTimeout,
		GracePeriod:        cfg.GracePeriod,
		StalenessTolerance: cfg.StalenessTolerance,
		MaxParticipants:    cfg.MembersLimit,
	}, publisher, logger)

	roomService, err := room.NewService(registry, dir, links, cfg.Secret, logger)
	if err != nil {
		return fmt.Errorf("failed to create room service: %w", err)
	}

	connectionRepo := inmemory.NewRepo(logger)
	controller := controller.NewController(roomService, connectionRepo, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case s := <-sig:
			logger.Info("shutdown signal received", "signal", s.String())
		case <-serverCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)

		// hijacked websocket connections are not tracked by the server
		registry.Close()
		closed := connectionRepo.CloseAll()
		publisher.Close()

		logger.Info("server stopped", "closed_connections", closed)
		shutdownErr <- err
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverStopCtx()
		<-shutdownErr
		return err
	}

	return <-shutdownErr
}
