package lazy

import (
	"reporag/internal/adapter/cache"
	"reporag/internal/domain"
)

// LazyFileParser returns head-only parses of indexed files, keeping the
// most recently used ones in a bounded cache.
type LazyFileParser struct {
	index *MetadataIndex
	cache *cache.LRU[string, *domain.ParsedFile]
}

func NewLazyFileParser(index *MetadataIndex, cacheSize int) *LazyFileParser {
	return &LazyFileParser{
		index: index,
		cache: cache.NewLRU[string, *domain.ParsedFile](cacheSize),
	}
}

// ParseFiles skips paths that are not indexed. Cached entries are returned
// as the same object.
func (p *LazyFileParser) ParseFiles(paths []string) []*domain.ParsedFile {
	parsed := make([]*domain.ParsedFile, 0, len(paths))
	for _, path := range paths {
		if cached, ok := p.cache.Get(path); ok {
			parsed = append(parsed, cached)
			continue
		}
		md, ok := p.index.Get(path)
		if !ok {
			continue
		}
		pf := &domain.ParsedFile{
			Path:     path,
			Language: md.Language,
			Content:  md.Head,
			Size:     md.Size,
			Symbols:  md.Symbols,
		}
		p.cache.Put(path, pf)
		parsed = append(parsed, pf)
	}
	return parsed
}

func (p *LazyFileParser) Reset() {
	p.cache.Invalidate()
}

func (p *LazyFileParser) Cached() int {
	return p.cache.Len()
}
