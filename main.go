package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pongd/pongd/internal/collab"
	"github.com/pongd/pongd/internal/config"
	"github.com/pongd/pongd/internal/logging"
	"github.com/pongd/pongd/internal/matchtoken"
	"github.com/pongd/pongd/internal/session"
	"github.com/pongd/pongd/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logs, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logs.Logger("PONG")

	store, err := newStore(cfg, logs)
	if err != nil {
		return err
	}
	signer, err := matchtoken.NewSigner(cfg.TokenSecret)
	if err != nil {
		return err
	}

	reg := session.NewRegistry(session.Options{
		Store:   store,
		Game:    cfg.Game(),
		Tick:    cfg.TickInterval(),
		Grace:   cfg.Grace(),
		Log:     logs.Logger("SESS"),
		GameLog: logs.Logger("GAME"),
	})
	defer reg.Close()

	srv := transport.NewServer(transport.Options{
		Registry:          reg,
		Signer:            signer,
		Identity:          collab.Identity{},
		AllowedOrigins:    cfg.AllowedOrigins,
		DisconnectForfeit: cfg.DisconnectForfeit(),
		Log:               logs.Logger("WSRV"),
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Pong server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newStore talks to the persistence service when one is configured and
// keeps everything in memory otherwise.
func newStore(cfg config.Config, logs *logging.Backend) (session.Store, error) {
	log := logs.Logger("COLB")
	if cfg.PersistURL == "" {
		log.Warnf("No persistence URL configured; match records stay in memory")
		return collab.NewMemory(), nil
	}
	c, err := collab.NewHTTPClient(cfg.PersistURL, cfg.PersistTimeout(), log)
	if err != nil {
		return nil, err
	}
	log.Infof("Persisting matches to %s", cfg.PersistURL)
	return c, nil
}
