package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/pkg/session"
)

// sessionCommand creates the command that manages saved serve sessions.
func (c *CLI) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved editing sessions",
	}

	cmd.AddCommand(c.sessionListCommand())
	cmd.AddCommand(c.sessionRemoveCommand())
	cmd.AddCommand(c.sessionCleanupCommand())
	cmd.AddCommand(c.sessionPathCommand())

	return cmd
}

func openSessionStore() (*session.FileStore, error) {
	dir, err := sessionDir()
	if err != nil {
		return nil, fmt.Errorf("get session dir: %w", err)
	}
	return session.NewFileStore(dir)
}

// sessionListCommand creates the "session list" subcommand.
func (c *CLI) sessionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			ids, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No saved sessions")
				return nil
			}

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rec, err := store.Get(ctx, id)
				if err != nil {
					rows = append(rows, []string{id, "-", "-", StyleWarning.Render("expired")})
					continue
				}
				graphs, expires := "-", "never"
				if rec.Document != nil {
					graphs = strconv.Itoa(len(rec.Document.Graphs))
				}
				if !rec.ExpiresAt.IsZero() {
					expires = rec.ExpiresAt.Format(time.DateOnly)
				}
				rows = append(rows, []string{id, graphs, rec.UpdatedAt.Format(time.DateTime), expires})
			}
			fmt.Println(renderTable([]string{"ID", "Graphs", "Updated", "Expires"}, rows))
			return nil
		},
	}
}

// sessionRemoveCommand creates the "session rm" subcommand.
func (c *CLI) sessionRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete saved sessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return err
				}
				printSuccess("Removed session %s", id)
			}
			return nil
		},
	}
}

// sessionCleanupCommand creates the "session cleanup" subcommand.
func (c *CLI) sessionCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			n, err := store.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			printSuccess("Removed %d expired sessions", n)
			return nil
		},
	}
}

// sessionPathCommand creates the "session path" subcommand.
func (c *CLI) sessionPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the session directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := sessionDir()
			if err != nil {
				return err
			}
			fmt.Println(dir)
			return nil
		},
	}
}
