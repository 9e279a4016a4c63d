package cli

import (
	"fmt"

	"cvcraft/internal/common"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [cv-data-file]",
	Short: "Render a CV data file to PDF, markdown, text, or JSON",
	Long: `Render a structured CV data file produced by the conversation flow.
The command takes the path to a CV data JSON file and writes the rendered
document to stdout or to the file given with --output. PDF output always
requires --output or derives the file name from the input path.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if renderConfig.OutputFormat == "" {
			renderConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(renderConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runRender,
}

var renderConfig common.CommandConfig

func init() {
	renderCmd.Flags().StringVarP(&renderConfig.OutputFile, "output", "o", "", "Output file path (default: stdout, or <input>.pdf for PDF)")
	renderCmd.Flags().StringVar(&renderConfig.OutputFormat, "format", "", "Output format: pdf, json, text, or markdown")

	// Add completion for format flag
	_ = renderCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	logger.Info("Rendering CV data file",
		"input_file", args[0],
		"output_format", renderConfig.OutputFormat)

	if err := common.RunRenderCommand(logger, renderConfig, args[0]); err != nil {
		return fmt.Errorf("failed to render CV: %w", err)
	}
	logger.Info("CV rendering completed successfully")
	return nil
}
