package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex-faces",
	Short: "Push every stored face embedding into the configured embedding index",
	Long: `Rebuilds the embedding index from the report_images table. Needed after
switching EMBEDDING_INDEX to qdrant or after the collection was dropped.
With pgvector or native the rows are the index and the pass only counts them.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	reindexCmd.Flags().Bool("json", false, "Output as JSON")
}

func runReindex(cmd *cobra.Command, args []string) error {
	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Cleanup()

	result, err := container.IndexWorker.Reindex(cmd.Context())
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return printJSON(result)
	}
	fmt.Printf("Indexed %d of %d images into %s in %s\n", result.Indexed, result.Total, container.Config.Spatial.EmbeddingIndex, result.Duration)
	if result.Failed > 0 {
		return fmt.Errorf("%d images failed to index", result.Failed)
	}
	return nil
}
