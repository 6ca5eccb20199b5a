package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"golang.org/x/sync/errgroup"

	"github.com/alimasry/go-collab-blocks/config"
	"github.com/alimasry/go-collab-blocks/discovery"
	"github.com/alimasry/go-collab-blocks/server"
	"github.com/alimasry/go-collab-blocks/store"
)

func main() {
	cfg, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if errors.Is(err, config.ErrGenerated) {
		fmt.Println("Configuration file generated")
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	stdr.SetVerbosity(cfg.Log.Verbosity)

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logr.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var relay server.Relay = server.NopRelay{}
	if cfg.Relay.Enabled {
		relay, err = server.NewRedisRelay(ctx, cfg.Relay.RedisAddr, logger)
		if err != nil {
			return err
		}
	}
	defer relay.Close()

	hub := server.NewHub(st, relay, cfg.Replica.ID, logger)
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewHandler(hub, server.HandlerConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MessageRate:    cfg.Server.MessageRate,
			MessageBurst:   cfg.Server.MessageBurst,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.Server.Addr, "store", cfg.Store.Backend, "relay", cfg.Relay.Enabled)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Path != "" {
		g.Go(func() error {
			return config.Watch(gctx, cfg.Path, logger, func(next *config.Config) {
				stdr.SetVerbosity(next.Log.Verbosity)
				logger.Info("log verbosity updated", "verbosity", next.Log.Verbosity)
			})
		})
	}

	if cfg.Discovery.Enabled {
		port, err := listenPort(cfg.Server.Addr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			text := []string{"replica=" + strconv.FormatUint(uint64(cfg.Replica.ID), 10)}
			return discovery.Announce(gctx, cfg.Discovery.Instance, port, text, logger)
		})
	}

	return g.Wait()
}

// openStore builds the configured backend. Durable backends sit behind a
// write-behind cache.
func openStore(ctx context.Context, cfg *config.Config, logger logr.Logger) (store.DocumentStore, func(), error) {
	cached := func(backing store.DocumentStore, closeBacking func()) (store.DocumentStore, func(), error) {
		cs := store.NewCachedStore(backing, cfg.Store.FlushInterval, logger)
		return cs, func() {
			cs.Close()
			closeBacking()
		}, nil
	}

	switch cfg.Store.Backend {
	case config.BackendBolt:
		bs, err := store.OpenBoltStore(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return cached(bs, func() { bs.Close() })
	case config.BackendPostgres:
		ps, err := store.NewPostgresStore(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return cached(ps, ps.Close)
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.Store.FirestoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("create firestore client: %w", err)
		}
		return cached(store.NewFirestoreStore(client), func() { client.Close() })
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

func listenPort(addr string) (int, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	return strconv.Atoi(port)
}
