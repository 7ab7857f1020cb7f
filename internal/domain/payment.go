package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment 由外部的支付流程写入，本系统只读，仅用于展示收入汇总
type Payment struct {
	ID           int64         `json:"id"`
	SubmissionID int64         `json:"submissionID"`
	Amount       int64         `json:"amount"` // 单位为分
	Status       PaymentStatus `json:"status"`
	Reference    string        `json:"reference"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// RevenueSummary 是收入页面展示的汇总数据
type RevenueSummary struct {
	TotalAmount     int64 `json:"totalAmount"`
	CompletedAmount int64 `json:"completedAmount"`
	PendingAmount   int64 `json:"pendingAmount"`
	PaymentCount    int64 `json:"paymentCount"`
}
