package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eventra/eventra-api/internal/models"
)

// CatalogRepository serves the plan/template reference data. The catalog is
// seeded by migrations and treated as read-only by the application.
type CatalogRepository interface {
	GetPlan(ctx context.Context, code string) (models.Plan, error)
	GetTemplate(ctx context.Context, templateID string) (models.Template, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
}

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetPlan(ctx context.Context, code string) (models.Plan, error) {
	const query = `
		SELECT code, name, tier, base_regular_limit, base_test_limit, validity_hours
		FROM plans
		WHERE code = $1`

	var plan models.Plan
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&plan.Code,
		&plan.Name,
		&plan.Tier,
		&plan.BaseRegularLimit,
		&plan.BaseTestLimit,
		&plan.ValidityHours,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Plan{}, models.ErrNotFound
		}
		return models.Plan{}, err
	}
	return plan, nil
}

func (r *catalogRepository) GetTemplate(ctx context.Context, templateID string) (models.Template, error) {
	const query = `
		SELECT id, name, tier
		FROM templates
		WHERE id = $1`

	var tmpl models.Template
	err := r.db.QueryRowContext(ctx, query, templateID).Scan(&tmpl.ID, &tmpl.Name, &tmpl.Tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Template{}, models.ErrNotFound
		}
		return models.Template{}, err
	}
	return tmpl, nil
}

func (r *catalogRepository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	const query = `
		SELECT code, name, tier, base_regular_limit, base_test_limit, validity_hours
		FROM plans
		ORDER BY CASE tier WHEN 'BASIC' THEN 1 WHEN 'PREMIUM' THEN 2 ELSE 3 END`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		var plan models.Plan
		if err := rows.Scan(&plan.Code, &plan.Name, &plan.Tier, &plan.BaseRegularLimit, &plan.BaseTestLimit, &plan.ValidityHours); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *catalogRepository) ListTemplates(ctx context.Context) ([]models.Template, error) {
	const query = `
		SELECT id, name, tier
		FROM templates
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		var tmpl models.Template
		if err := rows.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Tier); err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}
