package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <repository>",
	Short: "Analyze a repository and ask a question in one step",
	Long: `Run analyze followed by query. Chunks already stored for the repository
are skipped, so repeated runs only embed what changed.

Examples:
  reporag ask octocat/Hello-World -q "What does this repository contain?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	addQueryFlags(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	repo := args[0]
	progress := newStageProgress(!queryJSON)

	registry := newRegistry(GetConfig(), GetRootDir(), progress.update)
	defer registry.Close()

	svc, err := registry.Get(repo)
	if err != nil {
		return err
	}

	analyzed, result, err := svc.AnalyzeAndQuery(cmd.Context(), repo, queryText, topK())
	progress.finish()
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	if !queryJSON {
		fmt.Printf("%s\n\n", analyzed.Message)
	}
	return printResult(result)
}
