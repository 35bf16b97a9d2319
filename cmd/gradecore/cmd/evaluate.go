package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderunr/gradecore/internal/job"
	"github.com/coderunr/gradecore/internal/tasktype"
)

func NewEvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <job.json>",
		Short: "Run an evaluation job described by a JSON file",
		Long: `Load an EvaluationJob from a JSON file, dispatch it to the task type
named in its "task_type" field, run Evaluate, and print the resulting
job (outcome, text, stats) back out as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			verbose, _ := c.Flags().GetBool("verbose")
			return runEvaluate(args[0], verbose)
		},
	}
	return cmd
}

func runEvaluate(path string, verbose bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading job file: %w", err)
	}

	var ej job.Evaluation
	if err := json.Unmarshal(data, &ej); err != nil {
		return fmt.Errorf("decoding evaluation job: %w", err)
	}

	ctx, err := newContext(verbose)
	if err != nil {
		return err
	}

	tt, err := tasktype.Dispatch(ej.TaskType)
	if err != nil {
		return err
	}

	if err := tt.Evaluate(ctx, &ej); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	printJobResult(ej.Success, nil)
	return printJobJSON(&ej)
}
