package embedding

import "math"

const (
	TextFallbackDimension = 384
	CodeFallbackDimension = 256
)

// LocalEmbedder hashes input bytes into a fixed number of buckets. The
// output depends only on the input, and is unit length for non-empty input.
type LocalEmbedder struct {
	dimension int
}

func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = TextFallbackDimension
	}
	return &LocalEmbedder{dimension: dimension}
}

func (e *LocalEmbedder) Embed(text string) []float32 {
	counts := make([]float64, e.dimension)

	var h uint32
	for i := 0; i < len(text); i++ {
		h = h*31 + uint32(text[i])
		counts[h%uint32(e.dimension)]++
	}

	var sum float64
	for _, c := range counts {
		sum += c * c
	}

	vector := make([]float32, e.dimension)
	if sum == 0 {
		return vector
	}
	norm := math.Sqrt(sum)
	for i, c := range counts {
		vector[i] = float32(c / norm)
	}
	return vector
}

func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}
