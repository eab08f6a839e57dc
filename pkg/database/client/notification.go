/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	commonerrors "github.com/talesofai/nietest/pkg/errors"
)

// NotificationRecord is the persisted trace of an outbound notification.
// Delivery is fire-and-forget, so the record is written first and flagged
// once at least one channel accepted the message.
type NotificationRecord struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TaskId     string    `gorm:"column:task_id"`
	Event      string    `gorm:"column:event"`
	Payload    []byte    `gorm:"column:payload"`
	Sent       bool      `gorm:"column:sent"`
	CreateTime time.Time `gorm:"column:create_time;autoCreateTime"`
	SentTime   time.Time `gorm:"column:sent_time"`
}

func (NotificationRecord) TableName() string {
	return "notification"
}

func (c *Client) SubmitNotification(ctx context.Context, record *NotificationRecord) error {
	if c == nil || c.gorm == nil {
		return commonerrors.NewInternalError("The client of db has not been initialized")
	}
	if record == nil {
		return nil
	}
	if err := c.gorm.WithContext(ctx).Create(record).Error; err != nil {
		klog.ErrorS(err, "failed to insert notification db", "task", record.TaskId, "event", record.Event)
		return err
	}
	return nil
}

func (c *Client) MarkNotificationSent(ctx context.Context, id int64) error {
	if c == nil || c.gorm == nil {
		return commonerrors.NewInternalError("The client of db has not been initialized")
	}
	err := c.gorm.WithContext(ctx).Model(&NotificationRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{"sent": true, "sent_time": time.Now().UTC()}).Error
	if err != nil {
		klog.ErrorS(err, "failed to update notification db", "id", id)
		return err
	}
	return nil
}

// ListUnsentNotifications returns records that never reached any channel,
// oldest first, so a restart can replay them.
func (c *Client) ListUnsentNotifications(ctx context.Context) ([]*NotificationRecord, error) {
	if c == nil || c.gorm == nil {
		return nil, commonerrors.NewInternalError("The client of db has not been initialized")
	}
	var records []*NotificationRecord
	err := c.gorm.WithContext(ctx).Where("sent = ?", false).Order("create_time asc").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
