package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"incident-map/domain/models"
	"incident-map/domain/services"
)

var recipientsCmd = &cobra.Command{
	Use:   "recipients <creator-id> <longitude> <latitude>",
	Short: "Resolve who an SOS at a location would alert",
	Long: `Resolves the alert recipients for a hypothetical SOS report without
creating it: users within the radius plus the creator's contacts, each
listed once.

Examples:
  incidentctl recipients 7f1c...e2 100.5018 13.7563
  incidentctl recipients 7f1c...e2 100.5018 13.7563 --radius 1500 --json`,
	Args: cobra.ExactArgs(3),
	RunE: runRecipients,
}

func init() {
	rootCmd.AddCommand(recipientsCmd)
	recipientsCmd.Flags().Float64("radius", services.DefaultAlertRadiusMeters, "Search radius in meters")
	recipientsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecipients(cmd *cobra.Command, args []string) error {
	creatorID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid creator id: %w", err)
	}
	location, err := parseLocation(args[1], args[2])
	if err != nil {
		return err
	}

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Cleanup()

	resolution, err := container.AlertService.ResolveAlertRecipients(cmd.Context(), creatorID, location, mustGetFloat64(cmd, "radius"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return printJSON(resolution)
	}

	if resolution.Degraded {
		fmt.Fprintln(os.Stderr, "warning: one lookup failed, list is partial")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tUSERNAME\tSOURCE\tDISTANCE")
	for _, r := range resolution.Recipients {
		distance := "-"
		if r.Distance != nil {
			distance = fmt.Sprintf("%.0fm", *r.Distance)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.UserID, r.Username, r.Source, distance)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d recipients\n", len(resolution.Recipients))
	return nil
}

func parseLocation(lonArg, latArg string) (models.GeoPoint, error) {
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("invalid longitude %q", lonArg)
	}
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("invalid latitude %q", latArg)
	}
	if lon < -180 || lon > 180 {
		return models.GeoPoint{}, fmt.Errorf("longitude %g out of range", lon)
	}
	if lat < -90 || lat > 90 {
		return models.GeoPoint{}, fmt.Errorf("latitude %g out of range", lat)
	}
	return models.NewGeoPoint(lon, lat), nil
}
