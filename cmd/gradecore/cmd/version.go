package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderunr/gradecore/internal/config"
)

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for the gradecore CLI.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gradecore CLI v1.0.0")
			fmt.Println("Built with Go and Cobra framework")
			cfg, err := config.Load()
			if err != nil {
				fmt.Printf("Configuration: unavailable (%v)\n", err)
				return
			}
			fmt.Printf("Sandbox backend: %s\n", cfg.SandboxBackend)
			fmt.Printf("Scratch root: %s\n", cfg.ScratchRoot)
		},
	}
	return cmd
}
