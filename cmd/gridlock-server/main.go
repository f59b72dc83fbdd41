package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/gridlock/internal/archive"
	appcfg "github.com/kapu/gridlock/internal/config"
	"github.com/kapu/gridlock/internal/msgcat"
	"github.com/kapu/gridlock/internal/obslog"
	"github.com/kapu/gridlock/internal/ratelimit"
	"github.com/kapu/gridlock/internal/room"
	"github.com/kapu/gridlock/internal/session"
	"github.com/kapu/gridlock/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	reg := room.NewRegistry(room.Options{
		SymbolCap:       cfg.MaxSymbolsPerRole,
		MoveTimeout:     cfg.MoveTimeout,
		RoomExpiry:      cfg.RoomExpiry,
		MaxRoomIDLength: cfg.MaxRoomIDLength,
	})

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rl, err := ratelimit.NewRedis(cfg.RedisURL, cfg.MaxActionsPerWindow, cfg.RateLimitWindow)
		if err != nil {
			log.Fatalf("redis limiter init error: %v", err)
		}
		defer rl.Close()
		limiter = rl
	} else {
		limiter = ratelimit.NewMemory(cfg.MaxActionsPerWindow, cfg.RateLimitWindow)
	}

	coord := session.NewCoordinator(reg, limiter, cat)

	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer repo.Close()
		coord.AttachRepository(repo)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHub(coord, cfg.AllowedOrigins))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("server_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
