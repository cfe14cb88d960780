package kgrag

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	engine "github.com/nlcraft/kgrag"
	"github.com/nlcraft/kgrag/pkg/retriever"
)

var (
	queryPolicy  string
	queryBudget  float64
	queryLimit   int
	queryVerbose bool
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question over the ingested corpus",
	Long: `Query selects a retrieval strategy for the question, gathers context
from text fragments, verified facts and graph paths, and generates a grounded
answer. Use --policy to force a strategy instead of adaptive selection.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryPolicy, "policy", "", "force a retrieval policy (text, facts, graph, hybrid)")
	queryCmd.Flags().Float64Var(&queryBudget, "budget", 0, "cost budget for policy selection (0 = unlimited)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum results per source")
	queryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "v", false, "print the policy decision and retrieved context")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full answer as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	client, cleanup, err := buildClient()
	if err != nil {
		return err
	}
	defer cleanup()

	opts := &engine.AnswerOptions{
		Policy:      retriever.Policy(queryPolicy),
		BudgetLimit: queryBudget,
		Limit:       queryLimit,
	}
	answer, err := client.Answer(cmd.Context(), args[0], opts)
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	if queryVerbose {
		fmt.Printf("Policy: %s", answer.Policy)
		if answer.FallbackUsed {
			fmt.Printf(" (re-routed to %s)", answer.FinalPolicy)
		}
		fmt.Printf("  quality=%.2f\n", answer.Quality)
		if answer.Decision != nil {
			fmt.Printf("Reasoning: %s\n", answer.Decision.Reasoning)
		}
		if answer.Context != "" {
			fmt.Printf("\nContext:\n%s\n", answer.Context)
		}
		fmt.Println()
	}

	if answer.NoContext {
		fmt.Println("No relevant information found in the knowledge base.")
	}
	fmt.Println(answer.Text)
	return nil
}
