package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/config"
	"github.com/vnykmshr/topiclog/internal/httpapi"
	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
)

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg)
	collector := metrics.NewCollector("topiclog")

	opts := cfg.BrokerOptions()
	opts.Logger = logger
	opts.MetricsCollector = collector

	reg, err := broker.New(opts)
	if err != nil {
		return err
	}

	for _, id := range cfg.Topics {
		if err := reg.CreateTopic(id, 0); err != nil {
			_ = reg.Close()
			return fmt.Errorf("create topic %q: %w", id, err)
		}
	}

	apiOpts := httpapi.DefaultOptions()
	apiOpts.PollTimeout = cfg.PollTimeout
	apiOpts.MaxPollTimeout = cfg.MaxPollTimeout
	apiOpts.Logger = logger
	apiOpts.Metrics = collector

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.New(reg, apiOpts).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", logging.F("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Long polls and streams return once the registry is closed.
		_ = reg.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(w io.Writer, cfg *config.Config) *logging.SlogLogger {
	hopts := &slog.HandlerOptions{Level: cfg.Level().SlogLevel()}

	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(w, hopts)
	} else {
		h = slog.NewJSONHandler(w, hopts)
	}

	return logging.NewSlogLogger(slog.New(h))
}

func runConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tVALUE")
	fmt.Fprintf(w, "%sHTTP_ADDR\t%s\n", config.Prefix, cfg.HTTPAddr)
	fmt.Fprintf(w, "%sDEFAULT_CAPACITY\t%d\n", config.Prefix, cfg.DefaultCapacity)
	fmt.Fprintf(w, "%sMAX_MESSAGE_SIZE\t%d\n", config.Prefix, cfg.MaxMessageSize)
	fmt.Fprintf(w, "%sMAX_AGE\t%s\n", config.Prefix, cfg.MaxAge)
	fmt.Fprintf(w, "%sSWEEP_INTERVAL\t%s\n", config.Prefix, cfg.SweepInterval)
	fmt.Fprintf(w, "%sPOLL_TIMEOUT\t%s\n", config.Prefix, cfg.PollTimeout)
	fmt.Fprintf(w, "%sMAX_POLL_TIMEOUT\t%s\n", config.Prefix, cfg.MaxPollTimeout)
	fmt.Fprintf(w, "%sSHUTDOWN_TIMEOUT\t%s\n", config.Prefix, cfg.ShutdownTimeout)
	fmt.Fprintf(w, "%sLOG_LEVEL\t%s\n", config.Prefix, cfg.Level())
	fmt.Fprintf(w, "%sLOG_FORMAT\t%s\n", config.Prefix, cfg.LogFormat)
	fmt.Fprintf(w, "%sTOPICS\t%v\n", config.Prefix, cfg.Topics)
	return w.Flush()
}
