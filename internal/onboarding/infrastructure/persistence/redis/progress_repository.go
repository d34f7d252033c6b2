package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// snapshotTTL 快照保留时间；超过后视为放弃入驻，从档案仓储冷启动
const snapshotTTL = 7 * 24 * time.Hour

type progressRedisRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewProgressRedisRepository(client redis.UniversalClient) domain.ProgressRepository {
	return &progressRedisRepository{
		client: client,
		prefix: "onboarding:progress:",
	}
}

func (r *progressRedisRepository) Save(ctx context.Context, key string, snapshot *domain.ProgressSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, fmt.Sprintf("%s%s", r.prefix, key), data, snapshotTTL).Err()
}

func (r *progressRedisRepository) Load(ctx context.Context, key string) (*domain.ProgressSnapshot, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf("%s%s", r.prefix, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot domain.ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// 损坏的快照只是提示，不阻塞恢复流程
		return nil, nil
	}
	return &snapshot, nil
}

func (r *progressRedisRepository) Clear(ctx context.Context, key string) error {
	return r.client.Del(ctx, fmt.Sprintf("%s%s", r.prefix, key)).Err()
}
