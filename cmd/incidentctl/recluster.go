package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reclusterCmd = &cobra.Command{
	Use:   "recluster",
	Short: "Relabel every report and rebuild the region map",
	Long: `Runs DBSCAN over all report locations with the configured parameters
and atomically swaps the cluster projection. Safe to run while the API
server is serving requests.`,
	Args: cobra.NoArgs,
	RunE: runRecluster,
}

func init() {
	rootCmd.AddCommand(reclusterCmd)
	reclusterCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecluster(cmd *cobra.Command, args []string) error {
	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Cleanup()

	ctx := cmd.Context()
	if timeout := container.Config.Cluster.ReclusterTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := container.ClusterService.Recluster(ctx)
	if err != nil {
		return fmt.Errorf("recluster failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return printJSON(map[string]interface{}{
			"clusters":    result.Clusters,
			"duration_ms": result.Duration.Milliseconds(),
		})
	}
	fmt.Printf("Rebuilt %d clusters in %s\n", result.Clusters, result.Duration)
	return nil
}
