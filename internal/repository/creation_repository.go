package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/digkill/QuickAI/internal/models"
)

type CreationRepository struct {
	db *sql.DB
}

func NewCreationRepository(db *sql.DB) *CreationRepository {
	return &CreationRepository{db: db}
}

const creationColumns = `id, user_id, prompt, content, type, publish, likes, created_at, updated_at`

func (r *CreationRepository) Insert(ctx context.Context, c *models.Creation) error {
	likes, err := encodeLikes(c.Likes)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO creations (user_id, prompt, content, type, publish, likes)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, c.UserID, c.Prompt, c.Content, c.Type, c.Publish, likes)
	if err != nil {
		return fmt.Errorf("insert creation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("creation last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *CreationRepository) GetByID(ctx context.Context, id int64) (*models.Creation, error) {
	query := `SELECT ` + creationColumns + ` FROM creations WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanCreation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get creation: %w", err)
	}
	return c, nil
}

func (r *CreationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Creation, error) {
	query := `SELECT ` + creationColumns + `
FROM creations
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	return r.list(ctx, query, userID, limit, offset)
}

// ListPublished returns published creations, optionally narrowed to one kind.
func (r *CreationRepository) ListPublished(ctx context.Context, kind models.TaskKind, limit, offset int) ([]models.Creation, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + creationColumns + ` FROM creations WHERE publish = 1`)
	args := make([]any, 0, 3)
	if kind != "" {
		b.WriteString(` AND type = ?`)
		args = append(args, kind)
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)
	return r.list(ctx, b.String(), args...)
}

func (r *CreationRepository) Update(ctx context.Context, c *models.Creation) error {
	likes, err := encodeLikes(c.Likes)
	if err != nil {
		return err
	}
	const query = `
UPDATE creations
SET prompt = ?, content = ?, publish = ?, likes = ?, updated_at = NOW()
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, c.Prompt, c.Content, c.Publish, likes, c.ID); err != nil {
		return fmt.Errorf("update creation: %w", err)
	}
	return nil
}

func (r *CreationRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM creations WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete creation: %w", err)
	}
	return nil
}

func (r *CreationRepository) list(ctx context.Context, query string, args ...any) ([]models.Creation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list creations: %w", err)
	}
	defer rows.Close()

	creations := make([]models.Creation, 0)
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan creation: %w", err)
		}
		creations = append(creations, *c)
	}
	return creations, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCreation(s scanner) (*models.Creation, error) {
	var c models.Creation
	var kind string
	var likes []byte
	if err := s.Scan(&c.ID, &c.UserID, &c.Prompt, &c.Content, &kind, &c.Publish, &likes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = models.TaskKind(kind)
	decoded, err := decodeLikes(likes)
	if err != nil {
		return nil, err
	}
	c.Likes = decoded
	return &c, nil
}

func encodeLikes(likes []string) (string, error) {
	if likes == nil {
		likes = []string{}
	}
	b, err := json.Marshal(likes)
	if err != nil {
		return "", fmt.Errorf("encode likes: %w", err)
	}
	return string(b), nil
}

func decodeLikes(raw []byte) ([]string, error) {
	likes := []string{}
	if len(raw) == 0 {
		return likes, nil
	}
	if err := json.Unmarshal(raw, &likes); err != nil {
		return nil, fmt.Errorf("decode likes: %w", err)
	}
	return likes, nil
}
