package cli

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"reporag/internal/domain"
	"reporag/internal/usecase"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repository>",
	Short: "Fetch, chunk, embed and store a repository",
	Long: `Analyze a GitHub repository (owner/repo) or a local directory.

Textual and code chunks are embedded into separate collections stored under
the configured persist directory, one subdirectory per repository.

Examples:
  reporag analyze octocat/Hello-World
  reporag analyze ./my-project --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	repo := args[0]
	progress := newStageProgress(!analyzeJSON)

	registry := newRegistry(GetConfig(), GetRootDir(), progress.update)
	defer registry.Close()

	svc, err := registry.Get(repo)
	if err != nil {
		return err
	}

	if !analyzeJSON {
		fmt.Printf("Analyzing %s...\n", repo)
	}
	result, err := svc.AnalyzeRepository(cmd.Context(), repo)
	progress.finish()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	status := svc.GetStatus()
	if analyzeJSON {
		output, _ := json.MarshalIndent(struct {
			domain.AnalyzeResult
			Details domain.Status `json:"details"`
		}{result, status}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printAnalysis(result, status)
	return nil
}

func printAnalysis(result domain.AnalyzeResult, st domain.Status) {
	fmt.Printf("\n%s\n", result.Message)
	if v := result.Volume; v != nil {
		fmt.Printf("  Volume:         %s (%d files, ~%d tokens)\n", v.Category, v.TotalFiles, v.EstimatedTokens)
		fmt.Printf("  Chunk sizes:    text %d, code %d\n", v.TextChunkSize, v.CodeChunkSize)
	}
	c := st.Counters
	if st.Lazy {
		fmt.Printf("  Indexed files:  %d (lazy)\n", c.IndexedFiles)
	} else {
		fmt.Printf("  Chunks:         %d text, %d code\n", c.TextChunks, c.CodeChunks)
		fmt.Printf("  Stored:         %d\n", c.Stored)
		fmt.Printf("  Skipped:        %d (already stored)\n", c.SkippedDuplicates)
		if c.FallbackEmbeddings > 0 {
			fmt.Printf("  Local fallback: %d embeddings\n", c.FallbackEmbeddings)
		}
	}
	for _, stage := range []domain.Stage{
		domain.StageFetching, domain.StageChunking, domain.StageEmbedding,
		domain.StagePersisting, domain.StageMetadata,
	} {
		if d, ok := st.Durations[stage]; ok {
			fmt.Printf("  %-15s %s\n", string(stage)+":", formatDuration(d))
		}
	}
}

// stageProgress renders one progress bar per stage that reports a total.
type stageProgress struct {
	enabled bool

	mu    sync.Mutex
	stage domain.Stage
	bar   *progressbar.ProgressBar
}

func newStageProgress(enabled bool) *stageProgress {
	return &stageProgress{enabled: enabled}
}

func (p *stageProgress) update(stage domain.Stage, done, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || p.stage != stage {
		if p.bar != nil {
			p.bar.Finish()
		}
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-10s[reset]", stage)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}
	p.bar.Set(done)
}

func (p *stageProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// openService returns the registry's service for repo, attached to the
// analysis stored by an earlier analyze run.
func openService(cmd *cobra.Command, registry *usecase.Registry, repo string) (*usecase.RAGService, error) {
	svc, err := registry.Get(repo)
	if err != nil {
		return nil, err
	}
	if err := svc.Attach(cmd.Context(), repo); err != nil {
		return nil, fmt.Errorf("%w (run 'reporag analyze %s' first)", err, repo)
	}
	return svc, nil
}
