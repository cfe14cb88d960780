package kgrag

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge graph statistics and centrality diagnostics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of top-ranked entities to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	client, cleanup, err := buildClient()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := client.Statistics(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Entities:  %d\n", stats.EntityCount)
	fmt.Printf("Relations: %d\n", stats.RelationCount)

	if len(stats.EntityTypeCounts) > 0 {
		fmt.Println("\nEntity types:")
		for _, line := range sortedCounts(stats.EntityTypeCounts) {
			fmt.Println("  " + line)
		}
	}
	if len(stats.RelationTypeCounts) > 0 {
		fmt.Println("\nRelation types:")
		for _, line := range sortedCounts(stats.RelationTypeCounts) {
			fmt.Println("  " + line)
		}
	}

	diagnostics, err := client.Diagnostics(cmd.Context())
	if err != nil || len(diagnostics.PageRank) == 0 {
		return nil
	}

	type ranked struct {
		id    string
		score float64
	}
	entities := make([]ranked, 0, len(diagnostics.PageRank))
	for id, score := range diagnostics.PageRank {
		entities = append(entities, ranked{id, score})
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].score > entities[j].score })
	if len(entities) > statsTop {
		entities = entities[:statsTop]
	}

	fmt.Printf("\nTop entities by PageRank (computed %s):\n", diagnostics.ComputedAt.Format("2006-01-02 15:04:05"))
	for _, e := range entities {
		name := e.id
		if entity, err := client.Store().GetEntity(cmd.Context(), e.id); err == nil {
			name = entity.Name
		}
		fmt.Printf("  %-30s %.4f\n", name, e.score)
	}
	return nil
}

func sortedCounts(counts map[string]int64) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%-20s %d", k, counts[k]))
	}
	return lines
}
