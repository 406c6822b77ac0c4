package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/rentscan/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/rentscan.yaml
var configTemplate embed.FS

// templatePath is the path of the configuration template in configTemplate.
const templatePath = "templates/rentscan.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new rentscan configuration file",
		Long: `Initialize creates a new .rentscan configuration file in the current directory.

The generated file documents every option with its default value:
- Listing count, excluded home types and failure threshold per area
- Cache backend and directory
- Neighbor search radius
- Upstream request spacing and retries
- Mortgage and expense assumptions of the cash-flow model

Examples:
  # Create .rentscan in current directory
  rentscan init

  # Create config file at a specific path
  rentscan init -o myconfig.yaml

  # Force overwrite existing file
  rentscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
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

	content, err := configTemplate.ReadFile(templatePath)
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

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Listing count and excluded home types per area")
	fmt.Fprintln(out, "  - Mortgage rate, term and expense ratios")
	fmt.Fprintln(out, "  - Cache backend and neighbor search radius")
	fmt.Fprintf(out, "\nAPI keys belong in the environment or a .env file (%s, %s, %s).\n",
		config.EnvZillowKey, config.EnvZipcodeKey, config.EnvGoogleMapsKey)

	return nil
}
