package main

import (
	"errors"
	"fmt"

	"github.com/lyndonlyu/fmrecovery/internal/precheck"
	"github.com/spf13/cobra"
)

var errPrecheckFailed = errors.New("precheck failed")

func newPrecheckCmd() *cobra.Command {
	var configPath, format string
	cmd := &cobra.Command{
		Use:   "precheck [directoryPath]",
		Short: "Check that the recovery tool and target directory are usable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			result := precheck.DefaultRunner(cfg, dir).Run()

			if format == "json" {
				out, err := precheck.FormatRunResultJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), precheck.FormatRunResult(result))
			}
			if !result.AllPassed {
				return errPrecheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.fmrecovery/config.yaml)")
	cmd.Flags().StringVar(&format, "format", "", "Output format (json)")
	return cmd
}
