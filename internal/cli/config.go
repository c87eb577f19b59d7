package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/pkg/config"
)

// configCommand creates the preferences command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and create the preferences file",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// prefsPath is the file --config names, or the default location.
func (c *CLI) prefsPath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.Path()
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective preferences as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(os.Stdout).Encode(c.Prefs)
		},
	}
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the preferences file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.prefsPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	var renderApp string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a preferences file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.prefsPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("%s already exists (use --force to overwrite)", path)
				return nil
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			prefs := config.Default()
			prefs.RenderAppPath = renderApp
			if err := config.Save(path, prefs); err != nil {
				return err
			}
			printSuccess("Wrote preferences")
			printFile(path)
			if renderApp == "" {
				fmt.Println()
				printNextStep("Set render_app_path to enable rendering", appName+" config path")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&renderApp, "render-app", "", "renderer program to record")

	return cmd
}
