package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/specvalidate/internal/config"
	"github.com/nao1215/specvalidate/internal/runner"
)

//go:embed templates/specvalidate.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new specvalidate configuration file",
		Long: `Initialize creates a new .specvalidate configuration file in the current directory.

The generated file includes:
- The validator commands and their extra arguments
- Timeouts and the link checker's redirect limit
- Commented examples for markup filters and link exclusions

Examples:
  # Create .specvalidate in current directory
  specvalidate init

  # Create config file at a specific path
  specvalidate init -o ci/specvalidate.yaml

  # Force overwrite existing file
  specvalidate init -f`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/specvalidate.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	// Read the file back the way a validation run will.
	cfg, err := loadWrittenConfig(outputPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nConfigured validators:")
	for _, tool := range configuredTools(cfg) {
		status := "found"
		if err := runner.LookupTools(tool.command); err != nil {
			status = "not found on PATH"
		}
		fmt.Fprintf(out, "  %-20s %-12s %s\n", tool.role, tool.command, status)
	}
	fmt.Fprintf(out, "\nRun 'specvalidate --config %s' or place the file as %s in the document directory.\n",
		outputPath, configFileName)

	return nil
}

// loadWrittenConfig loads path on top of the defaults and validates the result.
func loadWrittenConfig(path string) (*config.Config, error) {
	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("written configuration does not load: %w", err)
	}
	cfg := config.NewConfig()
	file.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("written configuration is invalid: %w", err)
	}
	return cfg, nil
}

// configuredTool names one external validator of a configuration.
type configuredTool struct {
	role    string
	command string
}

// configuredTools lists the validators in stage order.
func configuredTools(cfg *config.Config) []configuredTool {
	return []configuredTool{
		{role: "document processor", command: cfg.Generator.Command},
		{role: "markup validator", command: cfg.Markup.Command},
		{role: "link checker", command: cfg.LinkChecker.Command},
	}
}
