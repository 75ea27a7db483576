package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"incident-map/domain/models"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the current region map",
	Args:  cobra.NoArgs,
	RunE:  runRegions,
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().Bool("json", false, "Output the full projection as JSON")
}

func runRegions(cmd *cobra.Command, args []string) error {
	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Cleanup()

	maps, err := container.ClusterService.GetRegionMaps(cmd.Context())
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return printJSON(maps)
	}

	if maps.Stale {
		fmt.Fprintln(os.Stderr, "warning: live table unavailable, showing cached region map")
	}
	if len(maps.Clusters) == 0 {
		fmt.Println("No clusters.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLUSTER\tSHAPE\tCENTROID\tREPORTS")
	for _, c := range maps.Clusters {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ClusterID, shapeOf(c.Polygon), centroidOf(c.Centroid), len(c.Markers))
	}
	return w.Flush()
}

func shapeOf(g models.Geometry) string {
	if g.Geometry == nil {
		return "-"
	}
	return g.GeoJSONType()
}

func centroidOf(g models.Geometry) string {
	pt, ok := g.Geometry.(orb.Point)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.6f,%.6f", pt.Lon(), pt.Lat())
}
