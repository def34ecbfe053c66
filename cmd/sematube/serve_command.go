package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"sematube/internal/ledger"
	"sematube/internal/logging"
	"sematube/internal/pipeline"
	"sematube/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the captioning pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd, ctx, bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}

func runServe(parent context.Context, cmd *cobra.Command, ctx *commandContext, bind string) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if strings.TrimSpace(bind) == "" {
		bind = cfg.Server.Bind
	}

	if missing := preflightMissing(cfg); len(missing) > 0 {
		return fmt.Errorf("missing required binaries: %s (run `sematube check`)", strings.Join(missing, ", "))
	}

	runs, err := ledger.Open(signalCtx)
	if err != nil {
		return err
	}
	defer runs.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := buildRuntime(cfg, logger, runtimeOptions{
		registerer: registry,
		observers:  []pipeline.Observer{pipeline.LedgerObserver(runs, logger)},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.workspace.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", rt.workspace.Root(), err)
	}
	defer func() { _ = rt.workspace.Unlock() }()

	srv, err := server.New(server.Options{
		Bind:       bind,
		Pipeline:   rt.orchestrator,
		Translator: rt.translator,
		Runs:       runs,
		Gatherer:   registry,
		DefaultMux: cfg.Media.Mux,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("sematube serving",
		logging.String(logging.FieldEventType, "serve_start"),
		logging.String("addr", srv.Addr()),
		logging.String("work_dir", rt.workspace.Root()),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

	<-signalCtx.Done()
	srv.Stop()
	logger.Info("sematube stopped", logging.String(logging.FieldEventType, "serve_stop"))
	return nil
}
