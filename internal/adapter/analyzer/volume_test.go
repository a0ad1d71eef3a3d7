package analyzer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"reporag/internal/domain"
)

func makeFiles(n int) []domain.RepoFile {
	files := make([]domain.RepoFile, n)
	for i := range files {
		files[i] = domain.RepoFile{Path: fmt.Sprintf("pkg/file%d.py", i), Content: "x = 1"}
	}
	return files
}

func TestVolumeAnalyzer_Thresholds(t *testing.T) {
	a := NewVolumeAnalyzer(NewTokenizer())

	tests := []struct {
		files    int
		category domain.VolumeCategory
		text     int
		code     int
	}{
		{0, domain.VolumeSmall, 1000, 800},
		{1, domain.VolumeSmall, 1000, 800},
		{99, domain.VolumeSmall, 1000, 800},
		{100, domain.VolumeMedium, 750, 500},
		{499, domain.VolumeMedium, 750, 500},
		{500, domain.VolumeLarge, 500, 300},
		{1200, domain.VolumeLarge, 500, 300},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_files", tt.files), func(t *testing.T) {
			info := a.Analyze(makeFiles(tt.files))
			assert.Equal(t, tt.files, info.TotalFiles)
			assert.Equal(t, tt.category, info.Category)
			assert.Equal(t, tt.text, info.TextChunkSize)
			assert.Equal(t, tt.code, info.CodeChunkSize)
		})
	}
}

func TestVolumeAnalyzer_Counts(t *testing.T) {
	a := NewVolumeAnalyzer(NewTokenizer())
	files := []domain.RepoFile{
		{Path: "README.md", Content: "Hello world"},
		{Path: "docs/guide.txt", Content: "Guide"},
		{Path: "src/main.py", Content: "def hello():\n    return 1\n"},
		{Path: "package.json", Content: "{}"},
	}

	info := a.Analyze(files)
	tok := NewTokenizer()
	want := 0
	for _, f := range files {
		want += tok.CountTokens(f.Content)
	}

	assert.Equal(t, 4, info.TotalFiles)
	assert.Equal(t, 2, info.TextualFiles)
	assert.Equal(t, 1, info.CodeFiles)
	assert.Equal(t, want, info.EstimatedTokens)
}

func TestClassify_IsPureFunctionOfFileCount(t *testing.T) {
	for n := 0; n < 700; n += 7 {
		assert.Equal(t, Classify(n), Classify(n))
	}
	assert.Equal(t, domain.VolumeMedium, Classify(100))
	assert.Equal(t, domain.VolumeLarge, Classify(500))
}
