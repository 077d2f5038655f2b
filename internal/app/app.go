package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/controller"
	"github.com/V1b3Harshal/providers-backend-sub000/internal/fanout"
	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/connection/inmemory"
	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room/redis"
	"github.com/V1b3Harshal/providers-backend-sub000/internal/service/room"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/ctxlogger"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/msgbroker"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/redisclient"
)

type AppConfig struct {
	Secret            string        `json:"-"`
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ParticipantsLimit int           `json:"participants_limit"`
	RoomTTL           time.Duration `json:"room_ttl"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
	LogLevel          string        `json:"log_level"`
	RedisPort         int           `json:"redis_port"`
	RedisHost         string        `json:"redis_host"`
	RedisPassword     string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.ParticipantsLimit < 1 {
		return fmt.Errorf("participants limit must be greater than 0")
	}
	if cfg.RoomTTL < time.Minute {
		return fmt.Errorf("room ttl must be at least a minute")
	}
	if cfg.CleanupInterval < time.Minute {
		return fmt.Errorf("cleanup interval must be at least a minute")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := redis.NewRepo(rc, cfg.RoomTTL, logger)
	connectionRepo := inmemory.NewRepo()

	broker := msgbroker.NewRedisBroker(rc)
	defer broker.Close()

	eventFanout, err := fanout.New(broker, connectionRepo, logger)
	if err != nil {
		return fmt.Errorf("failed to start fanout: %w", err)
	}

	roomService := room.NewService(roomRepo, connectionRepo, eventFanout, logger, &room.Config{
		ParticipantsLimit: cfg.ParticipantsLimit,
		Secret:            cfg.Secret,
	})
	controller := controller.NewController(roomService, connectionRepo, logger, cfg.Secret)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	// background sweep for rooms that lost all their participants
	// without a clean leave
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-serverCtx.Done():
				return
			case <-ticker.C:
				removed, err := roomService.CleanupEmptyRooms(serverCtx)
				if err != nil {
					logger.ErrorContext(serverCtx, "room cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					logger.InfoContext(serverCtx, "room cleanup finished", "removed", removed)
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	slog.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
