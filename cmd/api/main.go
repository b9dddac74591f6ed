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

    "github.com/sirupsen/logrus"

    "ctrltune/internal/api"
    "ctrltune/internal/buildinfo"
    "ctrltune/internal/config"
)

func main() {
    cfg, err := config.LoadFromEnv()
    if err != nil {
        logrus.Fatalf("failed to load config: %v", err)
    }
    log := cfg.Logger()
    log.WithField("version", buildinfo.Version).Info(buildinfo.String())

    srvDeps, err := api.NewServer(cfg, log)
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }

    addr := fmt.Sprintf(":%d", cfg.Server.Port)
    srv := &http.Server{
        Addr:              addr,
        Handler:           srvDeps.Handler(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    // Start cache pruner
    pruner := srvDeps.NewPruner()
    pruner.Start()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    errc := make(chan error, 1)
    go func() {
        log.Infof("API listening on %s", addr)
        errc <- srv.ListenAndServe()
    }()

    select {
    case err := <-errc:
        if err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatalf("server error: %v", err)
        }
    case <-ctx.Done():
        log.Info("shutting down")
    }

    close(pruner.Stop)
    shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.WithError(err).Warn("graceful shutdown failed")
    }
    if err := srvDeps.Close(); err != nil {
        log.WithError(err).Warn("closing dependencies")
    }
}
