package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lambdaflows/devteam/config"
	"github.com/lambdaflows/devteam/notify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve session updates over websocket",
	Long: `Start the notification server. Hosts connect to /ws and receive
session, task and message updates as JSON events; /healthz reports
per-agent backend reachability.`,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := setupContext()
	defer cancel()

	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	o, cleanup, err := buildOrchestrator(ctx, cfg, logger, hub)
	if err != nil {
		return err
	}
	defer cleanup()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(o.HealthCheck(r.Context()))
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Listening on %s\n", cfg.Listen)
	logger.Info("serving", "addr", cfg.Listen, "agents", o.AgentTypes())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
