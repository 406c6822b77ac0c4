package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for rentscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rentscan",
		Short: "Rank properties for sale by estimated rental cash flow",
		Long: `rentscan ranks properties for sale in a postal area by their estimated
monthly rental cash flow.

Listings are gathered by walking the real-estate agents of the area, enriched
with tax history and rent estimates, and scored with a fixed-rate mortgage
model. When an area has too few listings, neighboring areas within a radius
are consulted. All upstream responses are cached, so repeating a request on
the same day costs no API calls.

API keys are read from ZILLOW_KEY, ZIPCODE_KEY and GMAPS_KEY, either in the
environment or in a .env file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRankCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
