package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

// QueueName 是生命周期事件的持久化队列，由 cmd/api 和 cmd/notifier 共同声明
const QueueName = "notification_queue"

// Publisher 抽象出发布消息所需的最小能力，*amqp.Channel 实现了它
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NotificationRecorder 用于在事件无法进入队列时直接落库，避免事件被静默丢弃
type NotificationRecorder interface {
	InsertNotification(notification *domain.Notification) (bool, error)
}

// Dispatcher 负责把生命周期事件发布到消息队列。
// 发布是异步投递的入口：调用方不会被下游的网络或 SMTP 延迟阻塞。
// 发布失败不会回滚触发它的投稿状态流转，
// 事件会被直接记录为一条投递失败的通知，进入运维队列等待人工跟进。
type Dispatcher struct {
	cfg       *config.Config
	publisher Publisher
	recorder  NotificationRecorder
}

func NewDispatcher(cfg *config.Config, publisher Publisher, recorder NotificationRecorder) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		publisher: publisher,
		recorder:  recorder,
	}
}

func (d *Dispatcher) Dispatch(event *domain.LifecycleEvent) domain.DeliveryResult {
	data, err := json.Marshal(event)
	if err != nil {
		// 事件本身无法序列化属于编程错误，同样不能静默丢弃
		d.recordFailure(event, err)
		return domain.DeliveryResult{OK: false, Reason: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := d.publisher.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
		},
	); err != nil {
		slog.Error("事件发布失败", "eventID", event.EventID, "error", err)
		d.recordFailure(event, err)
		return domain.DeliveryResult{OK: false, Reason: err.Error()}
	}

	return domain.DeliveryResult{OK: true}
}

func (d *Dispatcher) recordFailure(event *domain.LifecycleEvent, cause error) {
	notification := &domain.Notification{
		EventID:        event.EventID,
		RecipientID:    event.RecipientID,
		Type:           event.Type,
		Title:          event.Title,
		Message:        event.Message,
		SubmissionID:   event.SubmissionID,
		DeliveryStatus: domain.DeliveryStatusFailed,
		LastError:      cause.Error(),
	}

	if _, err := d.recorder.InsertNotification(notification); err != nil {
		// 落库也失败时只能靠日志兜底了
		slog.Error("无法记录投递失败的事件", "eventID", event.EventID, "error", err)
	}
}
