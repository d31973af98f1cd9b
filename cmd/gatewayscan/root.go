package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/gatewayscan/internal/config"
	gslog "github.com/nao1215/gatewayscan/internal/log"
)

// NewRootCmd creates the root command for gatewayscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatewayscan",
		Short: "Detect Braintree payment integrations on web sites",
		Long: `gatewayscan crawls candidate web sites and reports whether they show
evidence of a Braintree payment integration.

For every candidate URL the root page is fetched, links that look like
payment pages (checkout, cart, billing, ...) are followed, and the markup,
inline scripts and linked scripts are scored against a fixed bank of
signals. Candidates reaching the signal threshold are reported as FOUND.

Results are printed, appended to a CSV ledger and stored in a local
SQLite database that the history command reads.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFilePath()+")")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
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

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// getLogJSONFlag reports whether JSON logs were requested.
func getLogJSONFlag(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		v, _ = cmd.Root().PersistentFlags().GetBool("log-json")
	}
	return v
}

// setupLogger creates a structured logger that redacts credentials.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return gslog.NewSecureJSONLogger(w, verbose)
	}
	return gslog.NewSecureLogger(w, verbose)
}
