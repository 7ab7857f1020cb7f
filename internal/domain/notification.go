package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationTypeSubmission NotificationType = "submission"
	NotificationTypeReview     NotificationType = "review"
	NotificationTypeSystem     NotificationType = "system"
)

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Notification 的内容在创建之后不可变，只有收件人可以把它标记为已读，
// 投递相关的字段（deliveryStatus、attempts、lastError）只由 notifier worker 更新
type Notification struct {
	ID             int64            `json:"id"`
	EventID        string           `json:"eventID"`
	RecipientID    string           `json:"recipientID"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	SubmissionID   *int64           `json:"submissionID,omitempty"`
	Read           bool             `json:"read"`
	DeliveryStatus DeliveryStatus   `json:"deliveryStatus"`
	Attempts       int32            `json:"attempts"`
	LastError      string           `json:"lastError,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// LifecycleEvent 是投稿状态流转产生的事件，会被序列化后发送到消息队列中
// 收件人以邮箱作为身份标识（作者或管理员），事件永远只有一个收件人
type LifecycleEvent struct {
	EventID      string           `json:"eventID"`
	SubmissionID *int64           `json:"submissionID,omitempty"`
	RecipientID  string           `json:"recipientID"`
	Type         NotificationType `json:"type"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
}

// LifecycleEventID 生成确定性的事件 ID，
// 同一个投稿流转到同一个状态只会对应一个 ID，这样重复投递可以被去重
func LifecycleEventID(submissionID int64, status SubmissionStatus) string {
	return fmt.Sprintf("sub_%d_%s", submissionID, status)
}

type DeliveryResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}
