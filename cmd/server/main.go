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

    "github.com/rs/zerolog/log"

    "stocknews/internal/api"
    "stocknews/internal/app"
    "stocknews/internal/cache"
    "stocknews/internal/config"
    "stocknews/internal/logger"
)

func main() {
    if err := run(); err != nil {
        log.Error().Err(err).Msg("server exited")
        os.Exit(1)
    }
}

// run returns instead of exiting so the deferred closes always happen.
func run() error {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil { return fmt.Errorf("config: %w", err) }

    closer, err := logger.Init(cfg.Log, "stocknews")
    if err != nil { return fmt.Errorf("logger: %w", err) }
    defer closer.Close()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    a, err := app.New(ctx, cfg)
    if err != nil {
        // Missing API keys end up here.
        return fmt.Errorf("startup: %w", err)
    }
    defer a.Close()

    if s, ok := a.Store.(*cache.SQLite); ok {
        go purgeLoop(ctx, s, 10*time.Minute)
    }

    srv := &http.Server{
        Addr: ":" + cfg.Server.Port,
        Handler: api.NewRouter(api.Config{
            Quotes:         a.Quotes,
            News:           a.News,
            Batch:          a.Aggregator,
            MaxSymbols:     cfg.MaxSymbols,
            MaxBodyBytes:   cfg.Server.MaxBodyBytes,
            AllowedOrigins: cfg.Server.CORSAllowedOrigins,
        }),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
        WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    listenErr := make(chan error, 1)
    go func() {
        log.Info().Str("addr", srv.Addr).Msg("server listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            listenErr <- err
        }
    }()

    // graceful shutdown
    select {
    case <-ctx.Done():
    case err := <-listenErr:
        return fmt.Errorf("listen: %w", err)
    }
    log.Info().Msg("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Error().Err(err).Msg("shutdown")
    }
    return nil
}

// purgeLoop drops expired rows so the cache file does not grow without bound.
func purgeLoop(ctx context.Context, s *cache.SQLite, every time.Duration) {
    t := time.NewTicker(every)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            n, err := s.Purge(ctx)
            if err != nil {
                log.Warn().Err(err).Msg("cache purge")
                continue
            }
            log.Debug().Int64("rows", n).Msg("cache purged")
        }
    }
}
