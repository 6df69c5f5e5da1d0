// Package repository persists Plan and DecisionPack artifacts under
// plans/<plan_id>.json and plans/<plan_id>/decision_packs/<id>.json — an
// extension of spec.md §6.2's on-disk layout (DESIGN.md records the
// addition) that keeps every plan-scoped artifact beneath one directory.
package repository

import (
	"os"
	"path/filepath"
	"sync"

	"context"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
)

type PlanStore struct {
	root string
	mu   sync.Mutex
}

func NewPlanStore(repositoryRoot string) *PlanStore {
	return &PlanStore{root: filepath.Join(repositoryRoot, "plans")}
}

func (s *PlanStore) planPath(planID string) string {
	return filepath.Join(s.root, planID+".json")
}

// Create persists a new sealed plan. It refuses to overwrite an existing
// plan_id (spec.md §5: plans are immutable once sealed).
func (s *PlanStore) Create(ctx context.Context, p *model.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if atomicstore.Exists(s.planPath(p.PlanID)) {
		return model.ErrPlanAlreadySealed
	}
	return atomicstore.WriteJSON(s.planPath(p.PlanID), p)
}

func (s *PlanStore) GetByID(ctx context.Context, planID string) (*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !atomicstore.Exists(s.planPath(planID)) {
		return nil, model.ErrPlanNotFound
	}
	var p model.Plan
	if err := atomicstore.ReadJSON(s.planPath(planID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlanStore) List(ctx context.Context) ([]*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var plans []*model.Plan
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var p model.Plan
		if err := atomicstore.ReadJSON(filepath.Join(s.root, e.Name()), &p); err != nil {
			continue
		}
		plans = append(plans, &p)
	}
	return plans, nil
}

// DecisionPackStore persists Decision Packs at
// plans/<plan_id>/decision_packs/<decision_pack_id>.json.
type DecisionPackStore struct {
	root string
	mu   sync.Mutex
}

func NewDecisionPackStore(repositoryRoot string) *DecisionPackStore {
	return &DecisionPackStore{root: filepath.Join(repositoryRoot, "plans")}
}

func (s *DecisionPackStore) packPath(planID, packID string) string {
	return filepath.Join(s.root, planID, "decision_packs", packID+".json")
}

func (s *DecisionPackStore) Create(ctx context.Context, pack *model.DecisionPack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.packPath(pack.PlanID, pack.DecisionPackID), pack)
}

func (s *DecisionPackStore) GetByID(ctx context.Context, decisionPackID string) (*model.DecisionPack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	packs, err := s.allUnlocked()
	if err != nil {
		return nil, err
	}
	for _, p := range packs {
		if p.DecisionPackID == decisionPackID {
			return p, nil
		}
	}
	return nil, model.ErrDecisionPackNotFound
}

func (s *DecisionPackStore) ListByPlan(ctx context.Context, planID string) ([]*model.DecisionPack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Join(s.root, planID, "decision_packs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var packs []*model.DecisionPack
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var p model.DecisionPack
		if err := atomicstore.ReadJSON(filepath.Join(dir, e.Name()), &p); err != nil {
			continue
		}
		packs = append(packs, &p)
	}
	return packs, nil
}

func (s *DecisionPackStore) allUnlocked() ([]*model.DecisionPack, error) {
	var out []*model.DecisionPack
	planDirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, planDir := range planDirs {
		if !planDir.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, planDir.Name(), "decision_packs")
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			var p model.DecisionPack
			if err := atomicstore.ReadJSON(filepath.Join(dir, e.Name()), &p); err != nil {
				continue
			}
			out = append(out, &p)
		}
	}
	return out, nil
}

// PresetStore reads named presets from rules/presets.json (operator
// maintained, read by the Core at apply time; spec.md §4.5.2).
type PresetStore struct {
	path string
	mu   sync.Mutex
}

func NewPresetStore(repositoryRoot string) *PresetStore {
	return &PresetStore{path: filepath.Join(repositoryRoot, "rules", "presets.json")}
}

func (s *PresetStore) GetByName(ctx context.Context, name string) (*model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !atomicstore.Exists(s.path) {
		return nil, model.ErrPresetNotFound
	}
	var presets []*model.Preset
	if err := atomicstore.ReadJSON(s.path, &presets); err != nil {
		return nil, err
	}
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, model.ErrPresetNotFound
}
