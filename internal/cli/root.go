package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mark3labs/gladgen/internal/logging"
	"github.com/mark3labs/gladgen/internal/version"
)

// Execute runs the gladgen CLI.
func Execute() error {
	defer logging.Cleanup()
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gladgen",
		Short:         "Generate OpenGL, EGL, GLX and WGL loaders",
		Long:          "gladgen reads the Khronos XML registries and generates C, D or Go loaders for the requested API versions and extensions.",
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			logJSON, err := cmd.Flags().GetBool("log-json")
			if err != nil {
				return err
			}
			return logging.Initialize(verbose, logJSON)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagError := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newInitCmd(), newCheckCmd()} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}

	return cmd
}
