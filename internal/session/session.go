package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

// ErrNotFound 表示会话不存在或已经过期
var ErrNotFound = errors.New("会话不存在")

// Store 在 redis 中持久化已登录管理员的会话记录。
// 记录中只保存最小的 Principal 字段，不包含密码或哈希等任何机密内容。
// 会话只是客户端刷新后恢复状态用的提示，每个请求的鉴权仍然以 JWT + 本记录的存在为准。
// 并发写入采用 last-write-wins，不需要加锁。
type Store struct {
	client      *redis.Client
	expiration  time.Duration
	opraTimeout time.Duration
}

func NewStore(client *redis.Client, expiration, opraTimeout time.Duration) *Store {
	return &Store{
		client:      client,
		expiration:  expiration,
		opraTimeout: opraTimeout,
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session_%s", id)
}

func (s *Store) Set(ctx context.Context, id string, principal *domain.Principal) error {
	data, err := json.Marshal(principal)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opraTimeout)
	defer cancel()

	return s.client.Set(ctx, sessionKey(id), data, s.expiration).Err()
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opraTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	principal := &domain.Principal{}
	if err := json.Unmarshal(data, principal); err != nil {
		return nil, err
	}

	return principal, nil
}

func (s *Store) Clear(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opraTimeout)
	defer cancel()

	return s.client.Del(ctx, sessionKey(id)).Err()
}
