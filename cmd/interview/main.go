// Command interview runs the timed interview flow in a terminal. State is kept
// in a SQLite file by default, so a killed session offers to resume on the
// next start.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"interview-backend/internal/bootstrap"
	"interview-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(os.Getenv("STATE_STORE")) == "" {
		cfg.StateStore = "sqlite"
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Fatalf("create state dir: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{SkipRouter: true})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	c := &client{
		svc:         app.Service,
		dashboard:   app.Candidates,
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	runErr := c.run(ctx, os.Stdin)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.Service.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatalf("interview: %v", runErr)
	}
}
