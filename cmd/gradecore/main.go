package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	gradecorecmd "github.com/coderunr/gradecore/cmd/gradecore/cmd"
)

var (
	version = "1.0.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "gradecore",
		Short:   "gradecore - sandboxed compile/evaluate grading core",
		Long:    `A command line interface driving the gradecore sandbox, grading-step and task-type packages end-to-end against a local file cacher.`,
		Version: fmt.Sprintf("%s (%s) built at %s", version, commit, date),
	}

	rootCmd.PersistentFlags().String("config", "", "Not read: configuration is loaded from gradecore.yaml in ., /etc/gradecore/ or $HOME/.gradecore/ and from GRADECORE_* variables")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) logging")

	rootCmd.AddCommand(
		gradecorecmd.NewCompileCommand(),
		gradecorecmd.NewEvaluateCommand(),
		gradecorecmd.NewVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
