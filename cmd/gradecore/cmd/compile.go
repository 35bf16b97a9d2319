package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coderunr/gradecore/internal/job"
	"github.com/coderunr/gradecore/internal/tasktype"
)

func NewCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <job.json>",
		Short: "Run a compilation job described by a JSON file",
		Long: `Load a CompilationJob from a JSON file, dispatch it to the task type
named in its "task_type" field, run Compile, and print the resulting
job (including any new executables) back out as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			verbose, _ := c.Flags().GetBool("verbose")
			return runCompile(args[0], verbose)
		},
	}
	return cmd
}

func runCompile(path string, verbose bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading job file: %w", err)
	}

	var j job.Compilation
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decoding compilation job: %w", err)
	}

	ctx, err := newContext(verbose)
	if err != nil {
		return err
	}

	tt, err := tasktype.Dispatch(j.TaskType)
	if err != nil {
		return err
	}

	if err := tt.Compile(ctx, &j); err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	printJobResult(j.Success, j.CompilationSuccess)
	return printJobJSON(&j)
}

func printJobResult(success *bool, secondary *bool) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	bold.Print("Result: ")
	if success == nil || !*success {
		red.Println("sandbox error")
		return
	}
	if secondary != nil && !*secondary {
		red.Println("failed")
		return
	}
	green.Println("ok")
}

func printJobJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result job: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
