package main

import (
	"fmt"
	"strings"

	"github.com/lyndonlyu/fmrecovery/internal/stopfile"
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var (
		configPath string
		clearFile  bool
	)
	cmd := &cobra.Command{
		Use:   "stop [reason]",
		Short: "Halt running and future recovery batches until cleared",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			sw := stopfile.InDir(cfg.BaseDir)
			out := cmd.OutOrStdout()

			if clearFile {
				if err := sw.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(out, styleSuccess.Render("Stop file cleared: ")+sw.Path())
				return nil
			}

			reason := strings.Join(args, " ")
			if reason == "" {
				reason = "stopped by operator"
			}
			if err := sw.Engage(reason); err != nil {
				return err
			}
			fmt.Fprintln(out, styleWarn.Render("Stop file created: ")+sw.Path())
			fmt.Fprintln(out, styleDim.Render("Run 'fmrecovery stop --clear' to allow new batches."))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.fmrecovery/config.yaml)")
	cmd.Flags().BoolVar(&clearFile, "clear", false, "remove the stop file")
	return cmd
}
