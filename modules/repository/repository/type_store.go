// Package repository adapts the Document Repository's ports to disk,
// built on atomicstore instead of the teacher's pgxpool (spec.md's
// Non-goals exclude a relational store — see DESIGN.md).
package repository

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/repository/model"
)

// TypeStore persists the DocumentType catalog in a single atomic JSON file
// (spec.md §6.2: "types.json # array of DocumentType (atomic)").
type TypeStore struct {
	path string
	mu   sync.Mutex
}

func NewTypeStore(repositoryRoot string) *TypeStore {
	return &TypeStore{path: filepath.Join(repositoryRoot, "types.json")}
}

func (s *TypeStore) load() ([]*model.DocumentType, error) {
	if !atomicstore.Exists(s.path) {
		return nil, nil
	}
	var types []*model.DocumentType
	if err := atomicstore.ReadJSON(s.path, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (s *TypeStore) save(types []*model.DocumentType) error {
	return atomicstore.WriteJSON(s.path, types)
}

func (s *TypeStore) Create(ctx context.Context, t *model.DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	types, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range types {
		if existing.TypeID == t.TypeID {
			return model.ErrTypeIDConflict
		}
	}
	types = append(types, t)
	return s.save(types)
}

func (s *TypeStore) GetByID(ctx context.Context, typeID string) (*model.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	types, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		if t.TypeID == typeID {
			return t, nil
		}
	}
	return nil, model.ErrTypeNotFound
}

func (s *TypeStore) List(ctx context.Context) ([]*model.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *TypeStore) Update(ctx context.Context, t *model.DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	types, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range types {
		if existing.TypeID == t.TypeID {
			types[i] = t
			return s.save(types)
		}
	}
	return model.ErrTypeNotFound
}

func (s *TypeStore) Delete(ctx context.Context, typeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	types, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range types {
		if existing.TypeID == typeID {
			types = append(types[:i], types[i+1:]...)
			return s.save(types)
		}
	}
	return model.ErrTypeNotFound
}
