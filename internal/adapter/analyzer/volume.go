package analyzer

import (
	"log/slog"

	"reporag/internal/domain"
	"reporag/internal/port"
)

const (
	mediumThreshold = 100
	largeThreshold  = 500
)

type chunkSizes struct {
	text int
	code int
}

var sizesByCategory = map[domain.VolumeCategory]chunkSizes{
	domain.VolumeSmall:  {text: 1000, code: 800},
	domain.VolumeMedium: {text: 750, code: 500},
	domain.VolumeLarge:  {text: 500, code: 300},
}

// VolumeAnalyzer classifies a repository by size and recommends chunk sizes.
type VolumeAnalyzer struct {
	tokenizer port.Tokenizer
	logger    *slog.Logger
}

func NewVolumeAnalyzer(tokenizer port.Tokenizer) *VolumeAnalyzer {
	return &VolumeAnalyzer{
		tokenizer: tokenizer,
		logger:    slog.Default().With("component", "volume-analyzer"),
	}
}

// Classify maps a file count to its volume category.
func Classify(totalFiles int) domain.VolumeCategory {
	switch {
	case totalFiles < mediumThreshold:
		return domain.VolumeSmall
	case totalFiles < largeThreshold:
		return domain.VolumeMedium
	default:
		return domain.VolumeLarge
	}
}

// Analyze computes the VolumeInfo for the full file set of one repository.
func (a *VolumeAnalyzer) Analyze(files []domain.RepoFile) domain.VolumeInfo {
	info := domain.VolumeInfo{TotalFiles: len(files)}

	for _, f := range files {
		info.EstimatedTokens += a.tokenizer.CountTokens(f.Content)
		switch {
		case IsText(f.Path):
			info.TextualFiles++
		case IsCode(f.Path):
			info.CodeFiles++
		}
	}

	info.Category = Classify(info.TotalFiles)
	sizes := sizesByCategory[info.Category]
	info.TextChunkSize = sizes.text
	info.CodeChunkSize = sizes.code

	a.logger.Info("repository volume analyzed",
		"files", info.TotalFiles,
		"textual", info.TextualFiles,
		"code", info.CodeFiles,
		"tokens", info.EstimatedTokens,
		"category", info.Category)

	return info
}
