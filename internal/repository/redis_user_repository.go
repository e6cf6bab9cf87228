package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/digkill/QuickAI/internal/models"
)

// RedisUserRepository stores plan and free-usage metadata in one hash per user.
type RedisUserRepository struct {
	client *redis.Client
}

func NewRedisUserRepository(client *redis.Client) *RedisUserRepository {
	return &RedisUserRepository{client: client}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (r *RedisUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	fields, err := r.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	usage, err := strconv.Atoi(fields["free_usage"])
	if err != nil {
		usage = 0
	}
	return &models.User{
		ID:        id,
		Plan:      models.ParsePlan(fields["plan"]),
		FreeUsage: usage,
	}, nil
}

func (r *RedisUserRepository) Ensure(ctx context.Context, id string) (*models.User, error) {
	key := userKey(id)
	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, key, "plan", string(models.PlanFree))
	pipe.HSetNX(ctx, key, "free_usage", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("provision user hash: %w", err)
	}
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s missing after provision", id)
	}
	return user, nil
}

func (r *RedisUserRepository) SetFreeUsage(ctx context.Context, id string, n int) error {
	if err := r.client.HSet(ctx, userKey(id), "free_usage", n).Err(); err != nil {
		return fmt.Errorf("set free usage: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) SetPlan(ctx context.Context, id string, plan models.Plan) error {
	if err := r.client.HSet(ctx, userKey(id), "plan", string(plan)).Err(); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}
