package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/talentmarket/internal/identity/domain"
)

// sessionKeyPrefix 会话键前缀；值为 JSON 序列化的 AuthSession
const sessionKeyPrefix = "identity:session:"

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// sessionRedisRepository 会话 Redis 仓储
//
// 键的 TTL 与会话过期时间对齐，过期后由 Redis 自动清除，Get 统一返回未命中。
type sessionRedisRepository struct {
	client redis.UniversalClient
}

// NewSessionRedisRepository 创建会话仓储
func NewSessionRedisRepository(client redis.UniversalClient) domain.SessionRepository {
	return &sessionRedisRepository{client: client}
}

func (r *sessionRedisRepository) Save(ctx context.Context, session *domain.AuthSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("refusing to store an already expired session")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(session.Token), data, ttl).Err()
}

func (r *sessionRedisRepository) Get(ctx context.Context, token string) (*domain.AuthSession, error) {
	data, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session := new(domain.AuthSession)
	if err := json.Unmarshal(data, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRedisRepository) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}
