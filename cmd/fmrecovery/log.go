package main

import (
	"encoding/json"
	"fmt"

	"github.com/lyndonlyu/fmrecovery/internal/recoverlog"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "log <Recover.log>",
		Short: "Summarise a FMDeveloperTool recovery log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := recoverlog.ParseFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return fmt.Errorf("log: json marshal: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			for _, e := range rep.Entries {
				line := e.Message
				if e.File != "" {
					line = e.File + ": " + line
				}
				if e.Code != 0 {
					fmt.Fprintln(out, styleError.Render(fmt.Sprintf("[%d] %s", e.Code, line)))
				} else {
					fmt.Fprintln(out, styleDim.Render(line))
				}
			}
			fmt.Fprintln(out)
			switch {
			case rep.HasProblems():
				fmt.Fprintln(out, styleWarn.Render(fmt.Sprintf("%d problem(s) detected, %d error line(s)", rep.ProblemsFound, len(rep.Errors))))
			case rep.Clean:
				fmt.Fprintln(out, styleSuccess.Render("No problems detected"))
			default:
				fmt.Fprintln(out, styleInfo.Render("No problem summary found in log"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format (json)")
	return cmd
}
