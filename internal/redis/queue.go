package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 队列常量
const (
	QueueLifecycleEvents    = "lifecycle_events"
	QueueAlertNotifications = "alert_notifications"

	PriorityQueuePrefix = "priority_"
)

// QueueService Redis队列服务
// 事件按队列对外中转，任何传输方式（WebSocket、轮询、消息队列）都可以消费
type QueueService struct {
	client    *redis.Client
	keyPrefix string
}

// NewQueueService 创建新的队列服务
func NewQueueService(client *redis.Client, keyPrefix string) *QueueService {
	return &QueueService{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// 获取完整的队列名称
func (q *QueueService) getQueueKey(queue string) string {
	return fmt.Sprintf("%s%s", q.keyPrefix, queue)
}

// 获取优先级队列名称
func (q *QueueService) getPriorityQueueKey(queue string) string {
	return fmt.Sprintf("%s%s%s", q.keyPrefix, PriorityQueuePrefix, queue)
}

// PushTask 将任务推送到队列
func (q *QueueService) PushTask(ctx context.Context, queue string, task interface{}) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}

	queueKey := q.getQueueKey(queue)
	return q.client.LPush(ctx, queueKey, taskData).Err()
}

// PopTask 从队列中弹出任务（阻塞方式）
func (q *QueueService) PopTask(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	queueKey := q.getQueueKey(queue)
	result, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时
		}
		return nil, err
	}

	// BRPop返回一个包含两个元素的数组：[queueName, value]
	if len(result) < 2 {
		return nil, fmt.Errorf("从队列获取的数据结构不正确")
	}

	return []byte(result[1]), nil
}

// GetQueueLength 获取队列长度
func (q *QueueService) GetQueueLength(ctx context.Context, queue string) (int64, error) {
	queueKey := q.getQueueKey(queue)
	return q.client.LLen(ctx, queueKey).Result()
}

// PushTaskWithPriority 将任务推送到优先级队列
func (q *QueueService) PushTaskWithPriority(ctx context.Context, queue string, task interface{}, priority float64) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}

	priorityQueueKey := q.getPriorityQueueKey(queue)
	return q.client.ZAdd(ctx, priorityQueueKey, redis.Z{
		Score:  priority,
		Member: taskData,
	}).Err()
}

// PopTaskWithPriority 从优先级队列中弹出最高优先级的任务
func (q *QueueService) PopTaskWithPriority(ctx context.Context, queue string) ([]byte, error) {
	priorityQueueKey := q.getPriorityQueueKey(queue)

	// ZPOPMAX原子弹出最高分成员
	results, err := q.client.ZPopMax(ctx, priorityQueueKey, 1).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	member, ok := results[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("优先级队列成员类型不正确")
	}

	return []byte(member), nil
}
