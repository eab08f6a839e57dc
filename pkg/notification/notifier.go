/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
	"k8s.io/klog/v2"

	commonconfig "github.com/talesofai/nietest/pkg/config"
	dbclient "github.com/talesofai/nietest/pkg/database/client"
	"github.com/talesofai/nietest/pkg/httpclient"
	jsonutils "github.com/talesofai/nietest/pkg/utils/json"
)

// Records is the slice of the database client that keeps the delivery trace.
type Records interface {
	SubmitNotification(ctx context.Context, record *dbclient.NotificationRecord) error
	MarkNotificationSent(ctx context.Context, id int64) error
}

// Notifier delivers task events over the configured channels. All delivery
// is best-effort: failures are logged and swallowed so they never feed back
// into task state.
type Notifier struct {
	records    Records
	http       httpclient.Interface
	webhookUrl string
	dialFunc   func(m *gomail.Message) error
}

func NewNotifier(records Records) *Notifier {
	return &Notifier{
		records:    records,
		http:       httpclient.NewHttpClient(),
		webhookUrl: commonconfig.GetNotificationWebhookUrl(),
		dialFunc:   dialAndSend,
	}
}

// Notify records the event and pushes it to every enabled channel.
func (n *Notifier) Notify(ctx context.Context, message *Message) {
	if message == nil {
		return
	}
	record := &dbclient.NotificationRecord{
		TaskId:  message.TaskId,
		Event:   message.Event,
		Payload: jsonutils.MarshalSilently(message),
	}
	if n.records != nil {
		if err := n.records.SubmitNotification(ctx, record); err != nil {
			klog.ErrorS(err, "failed to record notification", "task", message.TaskId)
		}
	}

	delivered := false
	if n.webhookUrl != "" {
		if err := n.postWebhook(message); err != nil {
			klog.ErrorS(err, "webhook delivery failed", "task", message.TaskId, "event", message.Event)
		} else {
			delivered = true
		}
	}
	if commonconfig.IsEmailEnable() {
		if err := n.sendEmail(message); err != nil {
			klog.ErrorS(err, "email delivery failed", "task", message.TaskId, "event", message.Event)
		} else {
			delivered = true
		}
	}

	if delivered && n.records != nil && record.Id > 0 {
		if err := n.records.MarkNotificationSent(ctx, record.Id); err != nil {
			klog.ErrorS(err, "failed to flag notification sent", "id", record.Id)
		}
	}
}

func (n *Notifier) postWebhook(message *Message) error {
	result, err := n.http.Post(n.webhookUrl, message)
	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return fmt.Errorf("webhook returned %d: %s", result.StatusCode, result.String())
	}
	return nil
}

func (n *Notifier) sendEmail(message *Message) error {
	to := commonconfig.GetEmailTo()
	if len(to) == 0 {
		return fmt.Errorf("no email recipients configured")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", commonconfig.GetEmailFrom())
	m.SetHeader("To", to...)
	m.SetHeader("Subject", fmt.Sprintf("[nietest] %s: %s", message.Event, message.TaskName))
	m.SetBody("text/plain", fmt.Sprintf(
		"Task %s (%s) owned by %s: %s\ncompleted=%d failed=%d total=%d elapsed=%.0fs\n",
		message.TaskName, message.TaskId, message.Owner, message.Event,
		message.Completed, message.Failed, message.TotalImages, message.ElapsedSeconds))
	return n.dialFunc(m)
}

func dialAndSend(m *gomail.Message) error {
	dialer := gomail.NewDialer(
		commonconfig.GetEmailHost(),
		commonconfig.GetEmailPort(),
		commonconfig.GetEmailUser(),
		commonconfig.GetEmailPassword(),
	)
	return dialer.DialAndSend(m)
}
