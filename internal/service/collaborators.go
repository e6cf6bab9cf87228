package service

import (
	"context"

	"github.com/digkill/QuickAI/internal/clipdrop"
	"github.com/digkill/QuickAI/internal/models"
	"github.com/digkill/QuickAI/internal/storage"
)

type TextCompleter interface {
	CompleteText(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

type ImageSynthesizer interface {
	SynthesizeImage(ctx context.Context, prompt string) (*clipdrop.Image, error)
}

type ImageStore interface {
	StoreImage(ctx context.Context, src storage.Source, transform storage.Transform) (string, error)
}

// DocumentReader returns the plain text of the document at path.
type DocumentReader func(path string) (string, error)

type CreationStore interface {
	Insert(ctx context.Context, c *models.Creation) error
	GetByID(ctx context.Context, id int64) (*models.Creation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Creation, error)
	ListPublished(ctx context.Context, kind models.TaskKind, limit, offset int) ([]models.Creation, error)
	Update(ctx context.Context, c *models.Creation) error
	Delete(ctx context.Context, id int64) error
}

// UserStore is the identity-side plan and usage record. Both the MySQL and Redis
// repositories satisfy it.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Ensure(ctx context.Context, id string) (*models.User, error)
	SetFreeUsage(ctx context.Context, id string, n int) error
	SetPlan(ctx context.Context, id string, plan models.Plan) error
}
