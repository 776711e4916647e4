package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lyndonlyu/fmrecovery/internal/errkind"
	"github.com/spf13/cobra"
)

const version = "fmrecovery v0.1.0"

// Environment variables that may carry secrets instead of flags.
const (
	envPassphrase = "FMRECOVERY_PASSPHRASE"
	envPassword   = "FMRECOVERY_PASSWORD"
)

func newRootCmd() *cobra.Command {
	o := &runOptions{}
	root := &cobra.Command{
		Use:   "fmrecovery <directoryPath> <filePattern>",
		Short: "Recover all FileMaker files in a directory and report problems",
		Long: "fmrecovery runs FMDeveloperTool --recover over every file matching <filePattern>\n" +
			"in <directoryPath> (and its immediate subdirectories), discards the recovered\n" +
			"copies and reports which files could not be recovered.\n\n" +
			"Exit codes: 0 all recovered, 1 no matching files, 2 one or more recoveries\n" +
			"failed, 3 invalid arguments or directory, 4 internal error.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <directoryPath> <filePattern>, got %d argument(s): %w", len(args), errkind.ErrUsage)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecovery(cmd, args, o)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%v: %w", err, errkind.ErrUsage)
	})
	o.bind(root)

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
		newPrecheckCmd(),
		newHistoryCmd(),
		newLogCmd(),
		newStopCmd(),
	)
	return root
}

// newLogger returns a text logger on w when verbose, a discarding one otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	os.Exit(execute(newRootCmd(), os.Args[1:]))
}

// execute runs cmd and maps its error onto the documented exit codes.
func execute(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return errkind.ExitOK
	}
	fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Error: "+err.Error()))
	if errors.Is(err, errkind.ErrUsage) {
		fmt.Fprintln(cmd.ErrOrStderr(), styleDim.Render("Run 'fmrecovery --help' for usage."))
	}
	return errkind.ExitCodeFor(err)
}
