package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/QuickAI/internal/models"
)

// UserRepository keeps plan and free-usage metadata per identity-provider uid.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `
SELECT id, plan, free_usage, created_at, updated_at
FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var u models.User
	var plan string
	if err := row.Scan(&u.ID, &plan, &u.FreeUsage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Plan = models.ParsePlan(plan)
	return &u, nil
}

// Ensure returns the user, provisioning a free-tier row with zero usage on first sight.
func (r *UserRepository) Ensure(ctx context.Context, id string) (*models.User, error) {
	const query = `
INSERT IGNORE INTO users (id, plan, free_usage)
VALUES (?, ?, 0)`
	if _, err := r.db.ExecContext(ctx, query, id, models.PlanFree); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s missing after insert", id)
	}
	return user, nil
}

func (r *UserRepository) SetFreeUsage(ctx context.Context, id string, n int) error {
	const query = `UPDATE users SET free_usage = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, n, id); err != nil {
		return fmt.Errorf("set free usage: %w", err)
	}
	return nil
}

func (r *UserRepository) SetPlan(ctx context.Context, id string, plan models.Plan) error {
	const query = `UPDATE users SET plan = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, plan, id); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}
