package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	backend   string
	stateFile string
	boltPath  string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "links",
		Short:        "Inspect and maintain the processed link set",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "store backend (file|redis|postgres|bolt), overrides STORE_BACKEND")
	root.PersistentFlags().StringVar(&opts.stateFile, "state-file", "", "state file path, overrides STATE_FILE")
	root.PersistentFlags().StringVar(&opts.boltPath, "bolt-path", "", "bolt database path, overrides BOLT_PATH")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log store diagnostics to stderr")

	root.AddCommand(
		newCountCmd(opts),
		newListCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// openStore 读取配置（不要求 Telegram 凭据）并应用命令行覆盖
func (o *rootOptions) openStore(ctx context.Context) (storage.LinkStore, error) {
	cfg, err := config.LoadWithoutSecrets()
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.StoreBackend = o.backend
	}
	if o.stateFile != "" {
		cfg.StateFile = o.stateFile
	}
	if o.boltPath != "" {
		cfg.BoltPath = o.boltPath
	}

	log := logger.Nop()
	if o.verbose {
		if l, err := logger.New("debug"); err == nil {
			log = l
		}
	}
	return storage.Open(ctx, cfg, log)
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), store.Load(cmd.Context()).Len())
			return nil
		},
	}
}

// firstSeener 只有 bolt 后端记录了首次写入时间
type firstSeener interface {
	FirstSeen(link string) (time.Time, bool)
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		firstSeen bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored links in sorted order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			fs, ok := store.(firstSeener)
			if firstSeen && !ok {
				return errors.New("--first-seen needs the bolt backend")
			}

			links := store.Load(cmd.Context()).Sorted()
			if limit > 0 && len(links) > limit {
				links = links[:limit]
			}
			out := cmd.OutOrStdout()
			for _, l := range links {
				if !firstSeen {
					fmt.Fprintln(out, l)
					continue
				}
				seen := "-"
				if ts, found := fs.FirstSeen(l); found {
					seen = ts.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s\t%s\n", l, seen)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most N links (0 = all)")
	cmd.Flags().BoolVar(&firstSeen, "first-seen", false, "print the time each link was first stored (bolt only)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Merge a JSON array of links into the store (only adds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incoming, err := storage.ReadLinksFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			links := store.Load(cmd.Context())
			added := links.Merge(storage.NewLinkSet(incoming...))
			if err := store.Save(cmd.Context(), links); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d new links, %d total\n", added, links.Len())
			return nil
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.json>",
		Short: "Write the stored links as a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			links := store.Load(cmd.Context())
			if err := storage.NewFileStore(args[0], nil).Save(cmd.Context(), links); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d links to %s\n", links.Len(), args[0])
			return nil
		},
	}
}
