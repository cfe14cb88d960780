package kgrag

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract candidate triples from a text file without storing them",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	client, cleanup, err := buildClient()
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	triples, err := client.ExtractTriples(cmd.Context(), string(data))
	if err != nil {
		return err
	}

	for _, t := range triples {
		fmt.Printf("(%s)-[%s]->(%s)  confidence=%.2f\n", t.Subject, t.Relation, t.Object, t.Confidence)
	}
	fmt.Printf("%d triples\n", len(triples))
	return nil
}
