package entitlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/models"
)

const DefaultFreeLimit = 10

const (
	MessagePremiumOnly  = "This feature is only available for premium subscriptions"
	MessageLimitReached = "Limit reached. Upgrade to continue."
)

// Check reports whether a caller on plan with freeUsage recorded generations may proceed.
func Check(plan models.Plan, freeUsage, limit int) bool {
	if plan == models.PlanPremium {
		return true
	}
	return freeUsage < limit
}

// UsageWriter persists the free-usage counter on the identity side.
type UsageWriter interface {
	SetFreeUsage(ctx context.Context, userID string, n int) error
}

// Gate authorizes task kinds against the caller's plan and quota.
// The quota check and the later increment are separate steps, so concurrent
// requests from one caller near the limit can both pass.
type Gate struct {
	limit int
	usage UsageWriter
	log   *slog.Logger
}

func NewGate(limit int, usage UsageWriter, log *slog.Logger) *Gate {
	if limit < 0 {
		limit = DefaultFreeLimit
	}
	return &Gate{limit: limit, usage: usage, log: log}
}

func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) Authorize(caller models.Caller, kind models.TaskKind) error {
	if caller.Premium() {
		return nil
	}
	if !kind.Metered() {
		return apperr.Forbidden(MessagePremiumOnly)
	}
	if !Check(caller.Plan, caller.FreeUsage, g.limit) {
		return apperr.Forbidden(MessageLimitReached)
	}
	return nil
}

// RecordUsage bumps the free-usage counter after a successful metered generation.
// Failures are logged and never reach the caller.
func (g *Gate) RecordUsage(ctx context.Context, caller models.Caller, kind models.TaskKind) {
	if caller.Premium() || !kind.Metered() || g.usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := g.usage.SetFreeUsage(ctx, caller.UserID, caller.FreeUsage+1); err != nil && g.log != nil {
		g.log.Error("failed to record free usage", "err", err, "user", caller.UserID, "kind", kind)
	}
}
