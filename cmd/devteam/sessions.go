package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lambdaflows/devteam/config"
	"github.com/lambdaflows/devteam/session"
)

var (
	listWorktree string
	listStatus   string
	listParent   string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE:  listSessions,
}

var genealogyCmd = &cobra.Command{
	Use:   "genealogy <session-id>",
	Short: "Show a session's ancestors, descendants and siblings",
	Args:  cobra.ExactArgs(1),
	RunE:  showGenealogy,
}

func init() {
	sessionsCmd.Flags().StringVar(&listWorktree, "worktree", "", "Filter by worktree id")
	sessionsCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (idle, running, completed, failed)")
	sessionsCmd.Flags().StringVar(&listParent, "parent", "", "Filter by parent session id")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(genealogyCmd)
}

func listSessions(cmd *cobra.Command, args []string) error {
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

	sessions, err := o.ListSessions(ctx, session.Filter{
		WorktreeID: listWorktree,
		Status:     session.Status(listStatus),
		ParentID:   listParent,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tSTATUS\tPARENT\tTASKS\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.AgentType, s.Status, s.ParentID, len(s.TaskIDs),
			s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showGenealogy(cmd *cobra.Command, args []string) error {
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

	g, err := o.Genealogy(ctx, args[0])
	if err != nil {
		return err
	}

	printFamily := func(label string, members []*session.Session) {
		fmt.Printf("%s:\n", label)
		if len(members) == 0 {
			fmt.Println("  (none)")
			return
		}
		for _, s := range members {
			fmt.Printf("  %s  %s  %s\n", s.ID, s.AgentType, s.Status)
		}
	}
	printFamily("Ancestors", g.Ancestors)
	printFamily("Descendants", g.Descendants)
	printFamily("Siblings", g.Siblings)
	return nil
}
