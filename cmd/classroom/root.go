package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bidon15/classroom/internal/guard"
)

// Command annotations.
const (
	// annotationLocation names the screen a command renders. Commands that
	// carry it get the full store setup and, unless it is empty, a guard
	// check before running.
	annotationLocation = "classroom/location"
)

func withLocation(cmd *cobra.Command, loc guard.Location) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationLocation] = string(loc)
	return cmd
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "classroom",
		Short: "Classroom membership client",
		Long: `Sign in to the classroom service, browse the class member list and
keep a local feed of posts, likes and comments.

Examples:
  classroom login --email you@example.com --password secret
  classroom home
  classroom members --year 2565
  classroom feed post "hello class"
  classroom feed list -o json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.output {
			case outputTable, outputJSON, outputYAML:
			default:
				return fmt.Errorf("unknown output format %q (want table, json or yaml)", a.output)
			}

			loc, ok := cmd.Annotations[annotationLocation]
			if !ok {
				return nil
			}
			return a.setup(cmd.Context(), guard.Location(loc))
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml, $HOME/.classroom/config.yaml)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputTable, "output format: table, json or yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newHomeCmd(a),
		newProfileCmd(a),
		newMembersCmd(a),
		newFeedCmd(a),
		newConfigCmd(a),
	)
	return root
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		out:    stdout,
		errOut: stderr,
		color:  stdout == os.Stdout && os.Getenv("NO_COLOR") == "",
	}

	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	if closeErr := a.close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		a.printError(err)
		return 1
	}
	return 0
}
