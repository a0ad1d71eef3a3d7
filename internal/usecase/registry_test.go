package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporag/internal/domain"
)

func TestRegistry_OneServicePerKey(t *testing.T) {
	var created []string
	r := NewRegistry(func(key string) (*RAGService, error) {
		created = append(created, key)
		return NewRAGService(testOptions())
	})
	t.Cleanup(func() { _ = r.Close() })

	a, err := r.Get("example/repo")
	require.NoError(t, err)
	again, err := r.Get(" example/repo ")
	require.NoError(t, err)
	b, err := r.Get("other/repo")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"example/repo", "other/repo"}, created)
	assert.Equal(t, []string{"example/repo", "other/repo"}, r.Keys())

	_, err = a.AnalyzeRepository(context.Background(), "example/repo")
	require.NoError(t, err)
	assert.True(t, a.GetStatus().Ready)
	assert.False(t, b.GetStatus().Ready)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(func(string) (*RAGService, error) {
		return NewRAGService(testOptions())
	})

	s, err := r.Get("example/repo")
	require.NoError(t, err)
	require.NoError(t, r.Remove("example/repo"))
	require.NoError(t, r.Remove("example/repo"))

	_, err = s.QueryRepository(context.Background(), "anything", 1)
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.Empty(t, r.Keys())
	require.NoError(t, r.Close())
}

func TestRegistry_FactoryError(t *testing.T) {
	r := NewRegistry(func(string) (*RAGService, error) {
		return nil, errors.New("boom")
	})

	_, err := r.Get("example/repo")
	assert.Error(t, err)
	_, err = r.Get("")
	assert.Error(t, err)
	assert.Empty(t, r.Keys())
}
