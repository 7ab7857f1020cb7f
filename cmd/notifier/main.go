package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/dispatcher"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/repository"
	"github.com/wneessen/go-mail"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// retryDelay 计算第 attempt 次失败后的退避时间：base * 2^(attempt-1)，不超过 max
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	// 通知邮件只有一个模板，启动时解析一次即可
	tmpl, err := template.ParseFiles("./templates/notification_email.html")
	if err != nil {
		logger.Error("无法解析邮件模板", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 声明队列
	q, err := ch.QueueDeclare(
		dispatcher.QueueName, // 队列名称
		true,                 // 是否持久化
		false,                // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
		false,                // 是否独占，即是否允许多个消费者访问这个队列
		false,                // 是否不等待，设置为 false，即等待 RabbitMQ 确认队列是否创建成功
		nil,                  // 额外参数
	)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 消费消息
	// 注意只能有一个消费者，同一个投稿的多个事件必须按发生顺序投递
	msgs, err := ch.Consume(
		q.Name, // 队列
		"",     // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false,  // 是否自动确认消息，必须手动确认才能保证 at-least-once
		false,  // 是否独占队列
		false,  // 是否禁止消费者接受自己发送的消息，必须设置为 false，因为 RabbitMQ 不支持这个参数
		false,  // 是否不等待，等待 RabbitMQ 响应
		nil,    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	worker := &worker{
		cfg:    cfg,
		repo:   repo,
		client: client,
		tmpl:   tmpl,
		logger: logger,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				worker.handle(ctx, msg)
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待事件...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出：正在投递的事件要么完成，要么因为没有 ack 而被重新投递，
	// 不会停留在"不知道发没发"的状态
	slog.Info("正在关闭 notifier worker...")
	cancel()
	wg.Wait() // 等待所有 goroutine 完成
	slog.Info("notifier worker 已成功关闭")
}

// notificationStore 抽象出 worker 对通知记录的读写，*repository.Repository 实现了它
type notificationStore interface {
	InsertNotification(notification *domain.Notification) (bool, error)
	GetNotificationByEventID(eventID string) (*domain.Notification, error)
	UpdateNotificationDelivery(eventID string, status domain.DeliveryStatus, attempts int32, lastError string) error
}

type worker struct {
	cfg    *config.Config
	repo   notificationStore
	client *mail.Client
	tmpl   *template.Template
	logger *slog.Logger
}

func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	w.logger.Info("收到事件", slog.String("message", string(msg.Body)))

	event := domain.LifecycleEvent{}
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		// 无法解析的事件重试也不会成功，
		// 落一条投递失败的记录进入运维队列之后再丢弃，事件不能静默消失
		w.logger.Error("事件反序列化失败", slog.String("error", err.Error()))

		failed := &domain.Notification{
			EventID:        "malformed_" + uuid.NewString(),
			RecipientID:    w.cfg.Notification.AdminRecipient,
			Type:           domain.NotificationTypeSystem,
			Title:          "无法解析的事件",
			Message:        string(msg.Body),
			DeliveryStatus: domain.DeliveryStatusFailed,
			LastError:      err.Error(),
		}
		if _, insertErr := w.repo.InsertNotification(failed); insertErr != nil {
			// 数据库暂时不可用，重新入队，等能落库了再丢弃
			w.logger.Error("无法记录解析失败的事件", slog.String("error", insertErr.Error()))
			_ = msg.Nack(false, true)
			return
		}

		_ = msg.Nack(false, false)
		return
	}

	// 先落库再发邮件。event_id 唯一，重复投递时这里不会产生第二条记录
	notification := &domain.Notification{
		EventID:        event.EventID,
		RecipientID:    event.RecipientID,
		Type:           event.Type,
		Title:          event.Title,
		Message:        event.Message,
		SubmissionID:   event.SubmissionID,
		DeliveryStatus: domain.DeliveryStatusPending,
	}

	inserted, err := w.repo.InsertNotification(notification)
	if err != nil {
		// 数据库暂时不可用，重新入队稍后再处理
		w.logger.Error("通知记录写入失败", slog.String("eventID", event.EventID), slog.String("error", err.Error()))
		_ = msg.Nack(false, true)
		return
	}

	if !inserted {
		// 这是一次重复投递，看看上次处理到了哪一步
		existing, err := w.repo.GetNotificationByEventID(event.EventID)
		if err != nil {
			w.logger.Error("无法读取已有的通知记录", slog.String("eventID", event.EventID), slog.String("error", err.Error()))
			_ = msg.Nack(false, true)
			return
		}
		if existing.DeliveryStatus != domain.DeliveryStatusPending {
			// 已经发送成功或已经彻底失败，直接确认
			_ = msg.Ack(false)
			return
		}
	}

	w.deliver(ctx, msg, &event)
}

// deliver 发送通知邮件，失败时在 worker 内部做有上限的指数退避重试，
// 重试耗尽后把通知标记为 failed 进入运维队列
func (w *worker) deliver(ctx context.Context, msg amqp.Delivery, event *domain.LifecycleEvent) {
	var lastErr error

	for attempt := 1; attempt <= w.cfg.Notification.MaxDeliveryAttempts; attempt++ {
		if err := w.send(event); err != nil {
			lastErr = err
			w.logger.Error("通知投递失败",
				slog.String("eventID", event.EventID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)

			if err := w.repo.UpdateNotificationDelivery(event.EventID, domain.DeliveryStatusPending, int32(attempt), err.Error()); err != nil {
				w.logger.Error("无法更新通知投递状态", slog.String("eventID", event.EventID), slog.String("error", err.Error()))
			}

			if attempt == w.cfg.Notification.MaxDeliveryAttempts {
				break
			}

			delay := retryDelay(attempt,
				time.Duration(w.cfg.Notification.RetryBaseDelay)*time.Second,
				time.Duration(w.cfg.Notification.RetryMaxDelay)*time.Second,
			)

			select {
			case <-ctx.Done():
				// 进程要退出了，不确认消息，重启后会重新投递
				return
			case <-time.After(delay):
			}
			continue
		}

		// 发送成功
		if err := w.repo.UpdateNotificationDelivery(event.EventID, domain.DeliveryStatusSent, int32(attempt), ""); err != nil {
			w.logger.Error("无法更新通知投递状态", slog.String("eventID", event.EventID), slog.String("error", err.Error()))
		}
		_ = msg.Ack(false)
		return
	}

	// 重试耗尽，标记为彻底失败，等待运维人工跟进，不能静默丢弃
	w.logger.Error("通知投递重试已耗尽", slog.String("eventID", event.EventID))
	if err := w.repo.UpdateNotificationDelivery(event.EventID, domain.DeliveryStatusFailed, int32(w.cfg.Notification.MaxDeliveryAttempts), lastErr.Error()); err != nil {
		w.logger.Error("无法更新通知投递状态", slog.String("eventID", event.EventID), slog.String("error", err.Error()))
	}
	_ = msg.Ack(false)
}

func (w *worker) send(event *domain.LifecycleEvent) error {
	m := mail.NewMsg()
	if err := m.From(w.cfg.Email.From); err != nil {
		return err
	}
	if err := m.To(event.RecipientID); err != nil {
		return err
	}

	m.Subject(fmt.Sprintf("投稿管理系统 - %s", event.Title))
	if err := m.SetBodyHTMLTemplate(w.tmpl, event); err != nil {
		return err
	}

	return w.client.DialAndSend(m)
}
