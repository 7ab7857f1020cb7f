package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

type fakeNotificationStore struct {
	inserted     []*domain.Notification
	insertResult bool
	existing     *domain.Notification
}

func (s *fakeNotificationStore) InsertNotification(n *domain.Notification) (bool, error) {
	s.inserted = append(s.inserted, n)
	return s.insertResult, nil
}

func (s *fakeNotificationStore) GetNotificationByEventID(eventID string) (*domain.Notification, error) {
	return s.existing, nil
}

func (s *fakeNotificationStore) UpdateNotificationDelivery(eventID string, status domain.DeliveryStatus, attempts int32, lastError string) error {
	return nil
}

func newTestWorker(store notificationStore) *worker {
	cfg := &config.Config{}
	cfg.Notification.AdminRecipient = "admin@portal.example.org"
	cfg.Notification.MaxDeliveryAttempts = 1

	return &worker{
		cfg:    cfg,
		repo:   store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRetryDelay(t *testing.T) {
	base := 2 * time.Second
	max := 60 * time.Second

	// 指数增长：2s、4s、8s、16s、32s
	require.Equal(t, 2*time.Second, retryDelay(1, base, max))
	require.Equal(t, 4*time.Second, retryDelay(2, base, max))
	require.Equal(t, 8*time.Second, retryDelay(3, base, max))
	require.Equal(t, 32*time.Second, retryDelay(5, base, max))

	// 超过上限后封顶
	require.Equal(t, max, retryDelay(6, base, max))
	require.Equal(t, max, retryDelay(20, base, max))
}

func TestRetryDelayBaseAboveMax(t *testing.T) {
	require.Equal(t, time.Second, retryDelay(1, 5*time.Second, time.Second))
}

// 无法解析的消息在丢弃之前必须落一条投递失败的记录进入运维队列
func TestHandleMalformedMessageRecordsFailure(t *testing.T) {
	store := &fakeNotificationStore{insertResult: true}
	w := newTestWorker(store)

	w.handle(context.Background(), amqp.Delivery{Body: []byte("这不是 JSON")})

	require.Len(t, store.inserted, 1)
	recorded := store.inserted[0]
	require.Equal(t, domain.DeliveryStatusFailed, recorded.DeliveryStatus)
	require.Equal(t, domain.NotificationTypeSystem, recorded.Type)
	require.Equal(t, "admin@portal.example.org", recorded.RecipientID)
	// 原始消息体要保留下来供人工排查
	require.Equal(t, "这不是 JSON", recorded.Message)
	require.NotEmpty(t, recorded.LastError)
}

// 重复投递一个已经发送成功的事件时直接确认，不再发第二封邮件
func TestHandleRedeliveredSentEvent(t *testing.T) {
	store := &fakeNotificationStore{
		insertResult: false,
		existing: &domain.Notification{
			EventID:        "sub_42_accepted",
			DeliveryStatus: domain.DeliveryStatusSent,
		},
	}
	// client 和 tmpl 都是 nil，误入发送路径会直接 panic
	w := newTestWorker(store)

	body := []byte(`{"eventID":"sub_42_accepted","recipientID":"author@example.org","type":"review","title":"投稿已录用","message":"恭喜"}`)
	w.handle(context.Background(), amqp.Delivery{Body: body})

	require.Len(t, store.inserted, 1)
	require.Equal(t, domain.DeliveryStatusPending, store.inserted[0].DeliveryStatus)
}
