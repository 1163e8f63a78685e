// Package cmd implements the websmith command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/observability"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// Version is the application version, set at build time with
// -ldflags "-X github.com/lazyvibe/websmith/cmd.Version=1.2.3".
var Version = "0.1.0"

// rootOptions is shared by every subcommand. Each root command owns its
// viper instance so tests can build commands side by side.
type rootOptions struct {
	configDir string
	v         *viper.Viper
}

// load resolves the config directory and reads config.json, environment
// overrides and bound flags.
func (o *rootOptions) load() (string, *app.Config, error) {
	dir := o.configDir
	if dir == "" {
		d, err := app.ConfigDir()
		if err != nil {
			return "", nil, fmt.Errorf("locate config directory: %w", err)
		}
		dir = d
	}
	dir = utils.ExpandPath(dir)

	cfg, err := app.LoadConfig(dir, o.v)
	if err != nil {
		return "", nil, err
	}
	return dir, cfg, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "websmith",
		Short: "Site profiles for a Chromium window.",
		Long: `websmith keeps one profile per website: display flags, injected
stylesheets and scripts, and the rules deciding which pages may load.
Without a subcommand it starts the terminal interface.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configDir, "config-dir", "", "configuration directory (default $XDG_CONFIG_HOME/websmith)")
	flags.String("driver", "", "browser driver: chromedp or rod")
	flags.Bool("headless", false, "run the browser without a visible window")
	_ = opts.v.BindPFlag("driver", flags.Lookup("driver"))
	_ = opts.v.BindPFlag("headless", flags.Lookup("headless"))

	root.AddCommand(
		newListCmd(opts),
		newOpenCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newFetchListCmd(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	err := NewRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
