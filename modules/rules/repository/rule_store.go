// Package repository persists the SubmissionRule catalog as a single
// atomic JSON file (spec.md §6.2: "rules/submission_rules.json"), the same
// whole-collection-in-one-file shape as the type catalog.
package repository

import (
	"path/filepath"
	"sync"

	"context"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/rules/model"
)

type RuleStore struct {
	path string
	mu   sync.Mutex
}

func NewRuleStore(repositoryRoot string) *RuleStore {
	return &RuleStore{path: filepath.Join(repositoryRoot, "rules", "submission_rules.json")}
}

func (s *RuleStore) load() ([]*model.SubmissionRule, error) {
	if !atomicstore.Exists(s.path) {
		return nil, nil
	}
	var rules []*model.SubmissionRule
	if err := atomicstore.ReadJSON(s.path, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *RuleStore) save(rules []*model.SubmissionRule) error {
	return atomicstore.WriteJSON(s.path, rules)
}

func (s *RuleStore) Create(ctx context.Context, r *model.SubmissionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range rules {
		if existing.RuleID == r.RuleID {
			return model.ErrRuleIDConflict
		}
	}
	rules = append(rules, r)
	return s.save(rules)
}

func (s *RuleStore) GetByID(ctx context.Context, ruleID string) (*model.SubmissionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if r.RuleID == ruleID {
			return r, nil
		}
	}
	return nil, model.ErrRuleNotFound
}

func (s *RuleStore) List(ctx context.Context) ([]*model.SubmissionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *RuleStore) Update(ctx context.Context, r *model.SubmissionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range rules {
		if existing.RuleID == r.RuleID {
			rules[i] = r
			return s.save(rules)
		}
	}
	return model.ErrRuleNotFound
}

func (s *RuleStore) Delete(ctx context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range rules {
		if existing.RuleID == ruleID {
			rules = append(rules[:i], rules[i+1:]...)
			return s.save(rules)
		}
	}
	return model.ErrRuleNotFound
}
