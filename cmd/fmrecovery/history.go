package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/lyndonlyu/fmrecovery/internal/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		format     string
		limit      int
	)

	openDB := func() (*history.DB, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(cfg.History.Path); err != nil {
			return nil, nil
		}
		return history.Open(cfg.History.Path)
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recovery runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			var runs []history.RunRecord
			if db != nil {
				defer db.Close()
				if runs, err = db.ListRuns(limit); err != nil {
					return err
				}
			}
			if format == "json" {
				out, err := history.FormatRunListJSON(runs)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), history.FormatRunList(runs))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-file results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("run %s: %w", args[0], errkind.ErrUsage)
			}
			defer db.Close()

			run, err := db.GetRun(args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("run %s not found: %w", args[0], errkind.ErrUsage)
			}
			if err != nil {
				return err
			}
			files, err := db.Files(run.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), history.FormatRun(run, files))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.fmrecovery/config.yaml)")
	cmd.Flags().StringVar(&format, "format", "", "Output format (json)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of runs to show")
	cmd.AddCommand(show)
	return cmd
}
