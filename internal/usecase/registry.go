package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds the service that owns one repository key.
type Factory func(key string) (*RAGService, error)

// Registry maps repository keys to their own RAGService so no repository
// context is shared between keys.
type Registry struct {
	factory Factory

	mu       sync.Mutex
	services map[string]*RAGService
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		services: make(map[string]*RAGService),
	}
}

// Get returns the service for key, creating it on first use.
func (r *Registry) Get(key string) (*RAGService, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("registry: empty repository key")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.services[key]; ok {
		return s, nil
	}
	s, err := r.factory(key)
	if err != nil {
		return nil, fmt.Errorf("create service for %s: %w", key, err)
	}
	r.services[key] = s
	return s, nil
}

// Keys lists the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Remove cleans up and forgets the service for key.
func (r *Registry) Remove(key string) error {
	r.mu.Lock()
	s, ok := r.services[key]
	delete(r.services, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Cleanup()
}

// Close cleans up every registered service.
func (r *Registry) Close() error {
	r.mu.Lock()
	services := r.services
	r.services = make(map[string]*RAGService)
	r.mu.Unlock()

	var errs []error
	for key, s := range services {
		if err := s.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
