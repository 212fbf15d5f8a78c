// Command devteam orchestrates coding-agent backends: it creates sessions,
// runs prompts against agent CLIs and serves session updates to hosts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lambdaflows/devteam/adapter"
	"github.com/lambdaflows/devteam/auth"
	"github.com/lambdaflows/devteam/backend/stdio"
	"github.com/lambdaflows/devteam/config"
	"github.com/lambdaflows/devteam/mcp"
	"github.com/lambdaflows/devteam/notify"
	"github.com/lambdaflows/devteam/orchestrator"
	"github.com/lambdaflows/devteam/permission"
	"github.com/lambdaflows/devteam/session"
	"github.com/lambdaflows/devteam/storage"
)

// Global flags
var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "devteam",
	Short: "Orchestrate coding-agent backends",
	Long: `devteam fronts multiple AI coding-agent CLIs (Claude, Codex, ...) behind
one session model: create sessions, run prompts, fork and spawn subsessions,
and stream normalized events to hosts.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./devteam.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupContext returns a context cancelled on SIGINT/SIGTERM. A second
// signal forces exit.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	return ctx, cancel
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// translators holds the per-agent permission tables for the CLIs devteam
// knows how to drive.
func translators() *permission.Registry {
	reg := permission.NewRegistry()
	reg.Register(permission.NewTranslator("claude", "default", map[permission.Mode]string{
		permission.ModeAcceptEdits: "acceptEdits",
		permission.ModeBypass:      "bypassPermissions",
		permission.ModePlan:        "plan",
		permission.ModeAsk:         "default",
		permission.ModeAuto:        "acceptEdits",
		permission.ModeOnFailure:   "default",
		permission.ModeAllowAll:    "bypassPermissions",
	}))
	reg.Register(permission.NewTranslator("codex", "ask", map[permission.Mode]string{
		permission.ModeDefault:     "ask",
		permission.ModeAcceptEdits: "autoEdit",
		permission.ModeBypass:      "yolo",
		permission.ModePlan:        "ask",
		permission.ModeAuto:        "autoEdit",
		permission.ModeOnFailure:   "on-failure",
		permission.ModeAllowAll:    "yolo",
	}))
	return reg
}

// buildOrchestrator assembles the stack from configuration and registers
// every configured agent.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...notify.Notifier) (*orchestrator.Orchestrator, func(), error) {
	var store session.Store = storage.NewMemoryStore()
	if cfg.StoreDir != "" {
		fs, err := storage.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	}

	opts := []orchestrator.Option{
		orchestrator.WithStore(store),
		orchestrator.WithLogger(logger),
	}

	var closers []func()
	if cfg.ToolServersFile != "" {
		repo, err := mcp.NewFileRepository(cfg.ToolServersFile, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Watch(); err != nil {
			logger.Warn("tool-server file watch unavailable", "error", err)
		}
		closers = append(closers, func() { _ = repo.Close() })
		opts = append(opts, orchestrator.WithResolver(mcp.NewResolver(repo, logger)))
	}

	sinks := notify.Multi{notify.LogNotifier{Logger: logger}}
	sinks = append(sinks, extra...)
	opts = append(opts, orchestrator.WithNotifier(sinks))

	o := orchestrator.New(opts...)
	perms := translators()
	for _, ac := range cfg.Agents {
		client := stdio.NewClient(stdio.Config{
			Name:     ac.Type,
			Path:     ac.Command,
			BaseArgs: ac.Args,
			Logger:   logger,
		})
		creds := auth.Provider(&auth.EnvProvider{Var: ac.TokenEnv})

		var adOpts []adapter.BackendOption
		adOpts = append(adOpts, adapter.WithLogger(logger))
		if tr, ok := perms.Lookup(ac.Type); ok {
			adOpts = append(adOpts, adapter.WithTranslator(tr))
		}
		ad := adapter.NewBackendAdapter(adapter.Descriptor{
			Type: ac.Type,
			Capabilities: adapter.Capabilities{
				Read: true, Write: true, Execute: true, MCP: true,
			},
			DefaultPermissionMode: ac.PermissionMode,
		}, client, creds, adOpts...)

		if err := o.RegisterAgent(ctx, ad); err != nil {
			logger.Warn("agent unavailable", "agent", ac.Type, "error", err)
		}
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.Cleanup(shutdownCtx); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
		for _, c := range closers {
			c()
		}
	}
	return o, cleanup, nil
}
