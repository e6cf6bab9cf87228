package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/digkill/QuickAI/internal/models"
)

type creationInserter interface {
	Insert(ctx context.Context, c *models.Creation) error
}

// CreationRecorder keeps the history of completed generations.
type CreationRecorder struct {
	store creationInserter
	log   *slog.Logger
}

func NewCreationRecorder(store creationInserter, log *slog.Logger) *CreationRecorder {
	return &CreationRecorder{store: store, log: log}
}

// Record stores a creation. It never fails the request: errors are logged and dropped.
func (r *CreationRecorder) Record(ctx context.Context, userID, prompt, content string, kind models.TaskKind, publish bool) {
	if r == nil || r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	c := &models.Creation{
		UserID:  userID,
		Prompt:  prompt,
		Content: content,
		Type:    kind,
		Publish: publish,
		Likes:   []string{},
	}
	if err := r.store.Insert(ctx, c); err != nil && r.log != nil {
		r.log.Error("failed to record creation", "err", err, "user", userID, "kind", kind)
	}
}
