package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

type fakePublisher struct {
	err       error
	published []amqp.Publishing
}

func (p *fakePublisher) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

type fakeRecorder struct {
	inserted []*domain.Notification
}

func (r *fakeRecorder) InsertNotification(n *domain.Notification) (bool, error) {
	r.inserted = append(r.inserted, n)
	return true, nil
}

func newTestDispatcher(publisher Publisher, recorder NotificationRecorder) *Dispatcher {
	cfg := &config.Config{}
	cfg.RabbitMQ.PublishTimeout = 1
	return NewDispatcher(cfg, publisher, recorder)
}

func newTestEvent() *domain.LifecycleEvent {
	submissionID := int64(42)
	return &domain.LifecycleEvent{
		EventID:      domain.LifecycleEventID(submissionID, domain.SubmissionStatusUnderReview),
		SubmissionID: &submissionID,
		RecipientID:  "author@x.org",
		Type:         domain.NotificationTypeReview,
		Title:        "投稿进入评审",
		Message:      "您的投稿已进入评审阶段",
	}
}

func TestDispatchPublishesEvent(t *testing.T) {
	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}

	result := newTestDispatcher(publisher, recorder).Dispatch(newTestEvent())

	require.True(t, result.OK)
	require.Len(t, publisher.published, 1)
	require.Empty(t, recorder.inserted)

	var event domain.LifecycleEvent
	require.NoError(t, json.Unmarshal(publisher.published[0].Body, &event))
	require.Equal(t, "sub_42_under_review", event.EventID)
	require.Equal(t, domain.NotificationTypeReview, event.Type)
}

func TestDispatchPublishFailureRecordedNotDropped(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("连接已断开")}
	recorder := &fakeRecorder{}

	result := newTestDispatcher(publisher, recorder).Dispatch(newTestEvent())

	require.False(t, result.OK)
	require.NotEmpty(t, result.Reason)

	// 发布失败的事件必须直接落库进入运维队列，不能被静默丢弃
	require.Len(t, recorder.inserted, 1)
	require.Equal(t, domain.DeliveryStatusFailed, recorder.inserted[0].DeliveryStatus)
	require.Equal(t, "sub_42_under_review", recorder.inserted[0].EventID)
	require.NotEmpty(t, recorder.inserted[0].LastError)
}

func TestLifecycleEventIDDeterministic(t *testing.T) {
	// 同一个投稿流转到同一个状态的事件 ID 必须是确定的，重复投递依靠它去重
	first := domain.LifecycleEventID(7, domain.SubmissionStatusAccepted)
	second := domain.LifecycleEventID(7, domain.SubmissionStatusAccepted)
	require.Equal(t, first, second)
	require.NotEqual(t, first, domain.LifecycleEventID(7, domain.SubmissionStatusUnderReview))
	require.NotEqual(t, first, domain.LifecycleEventID(8, domain.SubmissionStatusAccepted))
}
