package kgrag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nlcraft/kgrag/pkg/types"
)

var ingestArticleID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest text files into the knowledge graph",
	Long: `Ingest reads text files, splits each into paragraph fragments, indexes
them for retrieval and extracts facts into the knowledge graph. Runs resume
from the last checkpoint when a checkpoint directory is configured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestArticleID, "article-id", "", "article ID for all fragments (defaults to the file name)")
	ingestCmd.Flags().String("checkpoint-dir", "", "directory for ingestion checkpoints")
	viper.BindPFlag("extract.checkpoint_dir", ingestCmd.Flags().Lookup("checkpoint-dir"))
}

func runIngest(cmd *cobra.Command, args []string) error {
	client, cleanup, err := buildClient()
	if err != nil {
		return err
	}
	defer cleanup()

	var fragments []*types.Fragment
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		articleID := ingestArticleID
		if articleID == "" {
			articleID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		for i, paragraph := range splitParagraphs(string(data)) {
			fragments = append(fragments, &types.Fragment{
				ID:          fmt.Sprintf("%s-%04d", articleID, i),
				ArticleID:   articleID,
				Content:     paragraph,
				Position:    i,
				SourceTitle: filepath.Base(path),
			})
		}
	}
	if len(fragments) == 0 {
		return fmt.Errorf("no non-empty paragraphs found")
	}

	result, err := client.IngestFragments(cmd.Context(), fragments)
	if err != nil {
		return err
	}

	factCount := 0
	for _, fr := range result.Fragments {
		factCount += len(fr.FactIDs)
	}
	fmt.Printf("Ingested %d fragments (%d skipped, %d failed), %d facts extracted in %s\n",
		result.SuccessCount, result.SkippedCount, result.ErrorCount, factCount, result.Elapsed.Round(time.Millisecond))
	return nil
}

// splitParagraphs breaks text on blank lines, dropping empty chunks.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			paragraphs = append(paragraphs, chunk)
		}
	}
	return paragraphs
}
