package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

func TestSessionKey(t *testing.T) {
	require.Equal(t, "session_abc", sessionKey("abc"))
}

// redis 不可达时会话操作必须在配置的操作超时内返回，而不是阻塞到拨号超时
func TestStoreOperationTimeout(t *testing.T) {
	// TEST-NET 地址，连接不会成功
	client := redis.NewClient(&redis.Options{
		Addr:        "192.0.2.1:6379",
		DialTimeout: 5 * time.Second,
	})
	defer client.Close()

	store := NewStore(client, time.Hour, 100*time.Millisecond)

	start := time.Now()
	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)

	start = time.Now()
	err = store.Set(context.Background(), "nope", &domain.Principal{Email: "a@x.org"})
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)

	start = time.Now()
	err = store.Clear(context.Background(), "nope")
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}
