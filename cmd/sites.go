package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lazyvibe/websmith/internal/observability"
	"github.com/lazyvibe/websmith/internal/store"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// services loads configuration and builds the object graph with a
// console logger on stderr.
func (o *rootOptions) services(extra ...engineOptions) (*services, error) {
	dir, cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	observability.InitializeLogger(cfg.Logger)
	return newServices(dir, cfg, observability.GetLogger(), extra...), nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List site profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.services()
			if err != nil {
				return err
			}
			defer svc.Close()

			profiles, err := svc.store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintln(out, "No sites yet. Add one with the TUI or `websmith import`.")
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("ID", "NICKNAME", "URL", "RULES")
			for _, p := range profiles {
				rules := len(p.URLBlacklist) + len(p.URLWhitelist)
				t.Row(p.ID, p.Nickname, p.URL, strconv.Itoa(rules))
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|url>",
		Short: "Import a shared site profile",
		Long: `Import reads one profile in the sharing format, from a file or an
http(s) URL, and adds it. An existing site is never overwritten: a
colliding ID is replaced with a fresh one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.services()
			if err != nil {
				return err
			}
			defer svc.Close()

			data, err := svc.reader.Read(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			p, err := store.ImportNew(cmd.Context(), svc.store, data)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", p.DisplayName(), p.ID)
			return nil
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id|nickname> [file]",
		Short: "Write a site profile in the sharing format",
		Long: `Export encodes one profile. Without a file it is written to stdout;
a directory receives <nickname>.json.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.services()
			if err != nil {
				return err
			}
			defer svc.Close()

			p, err := store.Find(cmd.Context(), svc.store, args[0])
			if err != nil {
				return err
			}
			data, err := svc.store.Export(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if len(args) == 1 {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}

			path := utils.ExportPath(args[1], p.DisplayName())
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", p.DisplayName(), path)
			return nil
		},
	}
}

func newFetchListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-list <id|nickname> <url>",
		Short: "Download an adblock list and add it to a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[1])
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return fmt.Errorf("list URL must start with http:// or https://: %q", url)
			}

			svc, err := opts.services()
			if err != nil {
				return err
			}
			defer svc.Close()

			p, err := store.Find(cmd.Context(), svc.store, args[0])
			if err != nil {
				return err
			}
			dl, err := svc.downloader.Fetch(cmd.Context(), url)
			if err != nil {
				return fmt.Errorf("fetch list: %w", err)
			}
			p.AdblockLists = append(p.AdblockLists, dl.Ref)
			if err := svc.store.Upsert(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d rules from %s to %s\n", dl.Rules, url, p.DisplayName())
			return nil
		},
	}
}
