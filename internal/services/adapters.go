package services

import (
	"context"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	redisInternal "github.com/ColligenceLabs/abc-custody-admin-sub002/internal/redis"
)

// QueueEventPublisher 将生命周期事件与告警通知适配到Redis队列
// 队列之后由WebSocket网关或轮询端消费，引擎不感知具体传输方式
type QueueEventPublisher struct {
	queue *redisInternal.QueueService
}

// NewQueueEventPublisher 创建队列事件发布器
func NewQueueEventPublisher(queue *redisInternal.QueueService) *QueueEventPublisher {
	return &QueueEventPublisher{queue: queue}
}

// PublishLifecycleEvent 实现 rebalancing.EventPublisher
func (p *QueueEventPublisher) PublishLifecycleEvent(ctx context.Context, event *model.LifecycleEvent) error {
	return p.queue.PushTask(ctx, redisInternal.QueueLifecycleEvents, event)
}

// PublishAlertNotification 实现 alert.Notifier
// 告警按级别进入优先级队列，高级别优先派发
func (p *QueueEventPublisher) PublishAlertNotification(ctx context.Context, a *model.VaultAlert) error {
	return p.queue.PushTaskWithPriority(ctx, redisInternal.QueueAlertNotifications, a, severityScore(a.Severity))
}

// severityScore 告警级别对应的队列权重
func severityScore(severity model.AlertSeverity) float64 {
	switch severity {
	case model.AlertCritical:
		return 100
	case model.AlertError:
		return 75
	case model.AlertWarning:
		return 50
	default:
		return 25
	}
}
