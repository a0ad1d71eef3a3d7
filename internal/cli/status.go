package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reporag/internal/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <repository>",
	Short: "Show whether a repository has a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	repo := args[0]
	registry := newRegistry(GetConfig(), GetRootDir(), nil)
	defer registry.Close()

	svc, err := registry.Get(repo)
	if err != nil {
		return err
	}
	if err := svc.Attach(cmd.Context(), repo); err != nil && !errors.Is(err, domain.ErrNotReady) {
		return err
	}

	st := svc.GetStatus()
	if statusJSON {
		output, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(st.Message)
	fmt.Printf("  Repository: %s\n", repo)
	fmt.Printf("  Ready:      %v\n", st.Ready)
	if st.Ready {
		fmt.Printf("  Stored:     %d chunks\n", st.Counters.Stored)
	}
	if c := GetConfig(); c.VectorStore.Type == "bolt" {
		fmt.Printf("  Store:      %s\n", c.RepositoryDir(GetRootDir(), repo))
	}
	return nil
}
