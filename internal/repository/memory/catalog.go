package memory

import (
	"context"
	"sort"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
)

type catalogRepo struct {
	s *Store
}

// Catalog returns the plan/template reference-data view of the store.
func (s *Store) Catalog() repository.CatalogRepository {
	return catalogRepo{s: s}
}

func (r catalogRepo) GetPlan(ctx context.Context, code string) (models.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if plan, ok := r.s.plans[code]; ok {
		return plan, nil
	}
	return models.Plan{}, models.ErrNotFound
}

func (r catalogRepo) GetTemplate(ctx context.Context, templateID string) (models.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if tmpl, ok := r.s.templates[templateID]; ok {
		return tmpl, nil
	}
	return models.Template{}, models.ErrNotFound
}

func (r catalogRepo) ListPlans(ctx context.Context) ([]models.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	plans := make([]models.Plan, 0, len(r.s.plans))
	for _, plan := range r.s.plans {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		return !plans[i].Tier.Covers(plans[j].Tier)
	})
	return plans, nil
}

func (r catalogRepo) ListTemplates(ctx context.Context) ([]models.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	templates := make([]models.Template, 0, len(r.s.templates))
	for _, tmpl := range r.s.templates {
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}
