package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"ledger-core/pkg/errno"
)

// IdentityResolver 会话 token -> 用户 ID，登录与会话管理在账本之外
type IdentityResolver interface {
	ResolveUser(ctx context.Context, token string) (uint64, error)
}

// SessionKeyPrefix 登录服务写入 Redis 的会话键前缀
const SessionKeyPrefix = "session:"

// RedisIdentity 读取登录服务写入的 session:<token> -> userID
type RedisIdentity struct {
	client *redis.Client
}

func NewRedisIdentity(client *redis.Client) *RedisIdentity {
	return &RedisIdentity{client: client}
}

func (r *RedisIdentity) ResolveUser(ctx context.Context, token string) (uint64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, errno.ErrTokenInvalid
	}
	val, err := r.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, errno.ErrTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("resolve session: %w", err)
	}
	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil || userID == 0 {
		return 0, errno.ErrTokenInvalid
	}
	return userID, nil
}

// StaticIdentity 固定的 token 表，本地调试和测试使用
type StaticIdentity struct {
	mu     sync.RWMutex
	tokens map[string]uint64
}

func NewStaticIdentity(tokens map[string]uint64) *StaticIdentity {
	m := make(map[string]uint64, len(tokens))
	for k, v := range tokens {
		m[k] = v
	}
	return &StaticIdentity{tokens: m}
}

func (s *StaticIdentity) Add(token string, userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

func (s *StaticIdentity) ResolveUser(ctx context.Context, token string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.tokens[token]
	if !ok {
		return 0, errno.ErrTokenInvalid
	}
	return userID, nil
}
