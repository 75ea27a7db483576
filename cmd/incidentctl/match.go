package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"incident-map/domain/services"
)

var matchCmd = &cobra.Command{
	Use:   "match <image-file>",
	Short: "Find report images showing the same face",
	Long: `Embeds the face in an image file and lists stored report images whose
similarity is above the threshold. With --vector the argument is a JSON
file holding a precomputed embedding and the face service is skipped.

Examples:
  incidentctl match ./photo.jpg
  incidentctl match ./embedding.json --vector --threshold 0.95 --limit 3`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().Float64("threshold", services.DefaultMatchThreshold, "Minimum cosine similarity, exclusive")
	matchCmd.Flags().Int("limit", services.DefaultMatchLimit, "Maximum number of matches")
	matchCmd.Flags().Bool("vector", false, "Treat the argument as a JSON embedding file")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	threshold := mustGetFloat64(cmd, "threshold")
	limit := mustGetInt(cmd, "limit")

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Cleanup()

	var matches []services.FaceMatch
	if mustGetBool(cmd, "vector") {
		query, err := parseEmbedding(data)
		if err != nil {
			return err
		}
		matches, err = container.FaceService.FindMatches(cmd.Context(), query, threshold, limit)
		if err != nil {
			return err
		}
	} else {
		matches, err = container.FaceService.MatchImage(cmd.Context(), data, filepath.Base(args[0]), threshold, limit)
		if err != nil {
			return err
		}
	}

	if mustGetBool(cmd, "json") {
		return printJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIMILARITY\tREPORT\tIMAGE\tURL")
	for _, m := range matches {
		fmt.Fprintf(w, "%.4f\t%s\t%s\t%s\n", m.Similarity, m.ReportName, m.ImageID, m.ImageURL)
	}
	return w.Flush()
}

// parseEmbedding accepts a bare JSON array or an object with an "embedding" field.
func parseEmbedding(data []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(data, &vec); err == nil {
		return vec, nil
	}
	var wrapped struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("embedding file: %w", err)
	}
	if wrapped.Embedding == nil {
		return nil, fmt.Errorf("embedding file: no embedding field")
	}
	return wrapped.Embedding, nil
}
