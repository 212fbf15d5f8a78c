package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lambdaflows/devteam/config"
	"github.com/lambdaflows/devteam/session"
	"github.com/lambdaflows/devteam/stream"
)

var (
	runAgent       string
	runSession     string
	runMode        string
	runPermission  string
	runModel       string
	runWorkDir     string
	runIdleTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one prompt against an agent",
	Long: `Run one prompt turn. Without --session a fresh session is created;
with --session the existing conversation is resumed.

Example:
  devteam run "add unit tests for the parser"
  devteam run --session 3f2a... --mode fork "try a different approach"`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

func init() {
	runCmd.Flags().StringVar(&runAgent, "agent", "", "Agent type (default: config default_agent)")
	runCmd.Flags().StringVar(&runSession, "session", "", "Existing session id to prompt")
	runCmd.Flags().StringVar(&runMode, "mode", "continue", "Prompt mode: continue, fork or subsession")
	runCmd.Flags().StringVar(&runPermission, "permission-mode", "", "Unified permission mode")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model override")
	runCmd.Flags().StringVar(&runWorkDir, "work-dir", "", "Working directory for the agent")
	runCmd.Flags().DurationVar(&runIdleTimeout, "idle-timeout", 0, "Abort if the agent is silent this long (default 300s)")

	rootCmd.AddCommand(runCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	prompt := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := setupContext()
	defer cancel()

	o, cleanup, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	sessionID := runSession
	if sessionID == "" {
		agentType := runAgent
		if agentType == "" {
			agentType = cfg.DefaultAgent
		}
		s, err := o.CreateSession(ctx, session.Config{
			AgentType:      agentType,
			PermissionMode: runPermission,
			Model:          runModel,
			WorkDir:        runWorkDir,
		})
		if err != nil {
			return err
		}
		sessionID = s.ID
		fmt.Printf("Session: %s\n", s.ID)
	}

	task, err := o.Prompt(ctx, sessionID, session.PromptRequest{
		Prompt:         prompt,
		Mode:           session.PromptMode(runMode),
		PermissionMode: runPermission,
		IdleTimeout:    effectiveIdleTimeout(runIdleTimeout, cfg),
		Sink:           printEvent,
	})
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Task %s: %s (%.1fs, %d tokens out)\n",
		task.ID, task.Status,
		float64(task.DurationMs)/1000, task.Usage.OutputTokens)
	return nil
}

// effectiveIdleTimeout picks the idle threshold for one run: the flag wins,
// then the config file's idle_timeout_seconds, then the built-in default.
func effectiveIdleTimeout(flag time.Duration, cfg *config.Config) time.Duration {
	if flag > 0 {
		return flag
	}
	if cfg.IdleTimeoutSeconds > 0 {
		return time.Duration(cfg.IdleTimeoutSeconds) * time.Second
	}
	return 0
}

// printEvent renders the normalized stream for the terminal: chunks as they
// arrive, a newline per completed message.
func printEvent(ev stream.Event) {
	switch e := ev.(type) {
	case stream.ChunkEvent:
		fmt.Print(e.Text)
	case stream.CompleteEvent:
		fmt.Println()
	case stream.StoppedEvent:
		fmt.Printf("\n[stopped: %s]\n", e.Reason)
	case stream.ErrorEvent:
		fmt.Printf("\n[error: %v]\n", e.Err)
	}
}
