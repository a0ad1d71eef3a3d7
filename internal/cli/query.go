package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"reporag/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
	queryFull bool
)

var queryCmd = &cobra.Command{
	Use:   "query <repository>",
	Short: "Ask a question about an analyzed repository",
	Long: `Answer a question from the chunks stored by a previous analyze run.

The question is routed to the textual collection, the code collection or
both. Without a configured language model the answer is extracted from the
retrieved chunks.

Examples:
  reporag query octocat/Hello-World -q "What does the README say?"
  reporag query ./my-project -q "Where is the hello function?" --top-k 3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addQueryFlags(queryCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&queryText, "query", "q", "", "question to ask (required)")
	cmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "chunks per collection (default from config)")
	cmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&queryFull, "full", false, "print full source contents")
	cmd.MarkFlagRequired("query")
}

func topK() int {
	if queryTopK > 0 {
		return queryTopK
	}
	return GetConfig().Query.TopK
}

func runQuery(cmd *cobra.Command, args []string) error {
	repo := args[0]
	registry := newRegistry(GetConfig(), GetRootDir(), nil)
	defer registry.Close()

	svc, err := openService(cmd, registry, repo)
	if err != nil {
		return err
	}

	result, err := svc.QueryRepository(cmd.Context(), queryText, topK())
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return printResult(result)
}

func printResult(result domain.QueryResult) error {
	if queryJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s\n", result.Answer)
	if len(result.Sources) == 0 {
		fmt.Println("\nNo sources found.")
		return nil
	}

	fmt.Printf("\nSources:\n")
	for i, s := range result.Sources {
		fmt.Printf("--- [%d] %s (%s, score: %.4f) ---\n", i+1, s.FileName, s.ContentType, s.Score)
		if queryFull {
			fmt.Println(s.FullContent)
		} else {
			fmt.Println(s.Content)
		}
		fmt.Println()
	}
	return nil
}
