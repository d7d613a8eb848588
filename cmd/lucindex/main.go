// Command lucindex serves a lucindex index over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grob/lucindex"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "lucindex.yaml", "YAML config file")
	addr := flag.String("addr", "", "listen address (overrides http.addr)")
	path := flag.String("index", "", "index directory (overrides index.path)")
	memory := flag.Bool("memory", false, "use a transient in-memory index")
	flag.Parse()

	if err := run(*configPath, *addr, *path, *memory); err != nil {
		fmt.Fprintf(os.Stderr, "lucindex: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, path string, memory bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}
	if path != "" {
		cfg.Index.Path = path
	}
	if memory {
		cfg.Index.Path = ""
	}

	handler, err := cfg.Logger.handler()
	if err != nil {
		return err
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	opt, err := cfg.options(logger)
	if err != nil {
		return err
	}
	var h *lucindex.Handle
	if cfg.Index.Path == "" {
		h, err = lucindex.OpenMemory(opt)
	} else {
		h, err = lucindex.Open(cfg.Index.Path, opt)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newServer(h, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr, "index", h.Location(), "fields", h.Fields().Names())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		err := srv.Shutdown(sctx)
		return errors.Join(err, h.Shutdown(sctx))
	})
	err = g.Wait()
	logger.Info("stopped", "stats", h.Stats())
	return err
}
