package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// CreationService exposes the caller's history and the public gallery.
type CreationService struct {
	store CreationStore
	log   *slog.Logger
}

func NewCreationService(store CreationStore, log *slog.Logger) *CreationService {
	return &CreationService{store: store, log: log}
}

func (s *CreationService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Creation, error) {
	limit, offset = page(limit, offset)
	items, err := s.store.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list creations: %w", err)
	}
	return nonNil(items), nil
}

// ListPublished returns published creations of every kind, or only kind when it is set.
func (s *CreationService) ListPublished(ctx context.Context, kind string, limit, offset int) ([]models.Creation, error) {
	var filter models.TaskKind
	if kind != "" {
		k, ok := models.ParseTaskKind(kind)
		if !ok {
			return nil, apperr.Validation("Unknown creation type")
		}
		filter = k
	}
	limit, offset = page(limit, offset)
	items, err := s.store.ListPublished(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list published creations: %w", err)
	}
	return nonNil(items), nil
}

// ToggleLike flips userID in the creation's like-set and reports whether it is now liked.
func (s *CreationService) ToggleLike(ctx context.Context, userID string, id int64) (bool, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return false, err
	}
	liked := c.ToggleLike(userID)
	if err := s.store.Update(ctx, c); err != nil {
		return false, fmt.Errorf("update likes: %w", err)
	}
	return liked, nil
}

// Delete removes a creation owned by userID.
func (s *CreationService) Delete(ctx context.Context, userID string, id int64) error {
	c, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return apperr.Forbidden("You can only delete your own creations")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete creation: %w", err)
	}
	s.log.Info("creation deleted", "id", id, "user", userID)
	return nil
}

func (s *CreationService) find(ctx context.Context, id int64) (*models.Creation, error) {
	if id <= 0 {
		return nil, apperr.Validation("Creation id is required")
	}
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get creation: %w", err)
	}
	if c == nil {
		return nil, apperr.Validation("Creation not found")
	}
	return c, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nonNil(items []models.Creation) []models.Creation {
	if items == nil {
		return []models.Creation{}
	}
	return items
}
