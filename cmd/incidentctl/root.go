package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"incident-map/pkg/di"
	"incident-map/pkg/logger"
)

var logDir string

var rootCmd = &cobra.Command{
	Use:   "incidentctl",
	Short: "Operator tool for the incident map",
	Long: `incidentctl runs maintenance against the same database, index and
object storage the API server uses. Configuration comes from the
environment and an optional .env file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "Directory for structured log files")
}

func initLogger() {
	if err := logger.Init(logDir, false); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
}

// openContainer wires everything except the scheduler. Callers must Cleanup.
func openContainer() (*di.Container, error) {
	container := di.NewContainer()
	if err := container.InitCore(); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return container, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
