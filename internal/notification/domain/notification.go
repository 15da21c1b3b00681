// Package domain 通知记录的领域模型
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeEmail NotificationType = "EMAIL"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "SENT"
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// Notification 通知发送记录，每次外发邮件留痕一行
type Notification struct {
	gorm.Model
	// 所属用户 ID
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// 类型
	Type NotificationType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	// 主题
	Subject string `gorm:"column:subject;type:varchar(100)" json:"subject"`
	// 目标地址
	Target string `gorm:"column:target;type:varchar(255);not null" json:"target"`
	// 状态
	Status NotificationStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 失败原因
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
	// 发送时间
	SentAt *time.Time `gorm:"column:sent_at" json:"sent_at"`
}

func (Notification) TableName() string { return "notifications" }

// Sender 邮件传输出口
type Sender interface {
	Send(ctx context.Context, target, subject, body string, html bool) error
}

// NotificationRepository 通知记录仓储接口
type NotificationRepository interface {
	Save(ctx context.Context, notification *Notification) error
	ListByUser(ctx context.Context, userID uint) ([]*Notification, error)
}
