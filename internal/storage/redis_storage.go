package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// Redis 键前缀常量
const (
	// 再平衡记录相关
	keyRecordPrefix = "rebalancing:record:"
	keyRecordIDs    = "rebalancing:ids"
	keyRecordActive = "rebalancing:active"

	// 幂等键相关
	keyIdempotencyPrefix = "rebalancing:idempotency:"

	// 告警相关
	keyAlertPrefix = "alert:"
	keyAlertIDs    = "alert:ids"
	keyAlertActive = "alert:active"

	// 金库状态快照相关
	keyVaultStatusLatest  = "vault:status:latest"
	keyVaultStatusHistory = "vault:status:history"

	// 过期时间（秒）
	expiryRecord        = 86400 * 365 // 365天
	expiryVaultSnapshot = 86400 * 30  // 30天
)

// RedisStorage Redis存储实现
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStorage 创建Redis存储
func NewRedisStorage(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisStorage {
	return &RedisStorage{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Initialize 初始化Redis存储
func (s *RedisStorage) Initialize(ctx context.Context) error {
	// 测试连接
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Error("Redis连接失败", zap.Error(err))
		return fmt.Errorf("redis连接失败: %w", err)
	}

	s.logger.Info("Redis存储初始化成功")
	return nil
}

// Close 关闭Redis连接
func (s *RedisStorage) Close(ctx context.Context) error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("关闭Redis连接失败", zap.Error(err))
		return fmt.Errorf("关闭Redis连接失败: %w", err)
	}

	s.logger.Info("Redis连接已关闭")
	return nil
}

// Health 检查Redis健康状态
func (s *RedisStorage) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// key 拼接完整键名
func (s *RedisStorage) key(parts string) string {
	return s.keyPrefix + parts
}

// SaveRecord 保存再平衡记录
// 未完结记录同时维护在活跃集合中，用于钱包对在途检查
func (s *RedisStorage) SaveRecord(ctx context.Context, record *model.RebalancingRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化再平衡记录失败: %w", err)
	}

	key := s.key(keyRecordPrefix + record.ID)

	// 使用Pipeline批量执行
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, jsonData, time.Duration(expiryRecord)*time.Second)
	pipe.ZAdd(ctx, s.key(keyRecordIDs), redis.Z{
		Score:  float64(record.CreatedAt.Unix()),
		Member: record.ID,
	})

	if record.Status.Terminal() {
		pipe.SRem(ctx, s.key(keyRecordActive), record.ID)
	} else {
		pipe.SAdd(ctx, s.key(keyRecordActive), record.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存再平衡记录失败: %w", err)
	}

	return nil
}

// GetRecord 获取再平衡记录
func (s *RedisStorage) GetRecord(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	jsonData, err := s.client.Get(ctx, s.key(keyRecordPrefix+id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("获取再平衡记录失败: %w", err)
	}

	var record model.RebalancingRecord
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return nil, fmt.Errorf("解析再平衡记录失败: %w", err)
	}

	return &record, nil
}

// ListRecords 按条件查询再平衡记录（按创建时间倒序）
func (s *RedisStorage) ListRecords(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.key(keyRecordIDs), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("获取再平衡记录索引失败: %w", err)
	}

	records := make([]*model.RebalancingRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetRecord(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// 记录已过期但索引残留
				s.logger.Warn("再平衡记录索引残留", zap.String("id", id))
				continue
			}
			return nil, err
		}

		if filter == nil || filter.Match(record) {
			records = append(records, record)
		}
	}

	return records, nil
}

// HasActiveRecord 判断是否存在未完结的再平衡记录
func (s *RedisStorage) HasActiveRecord(ctx context.Context) (bool, error) {
	count, err := s.client.SCard(ctx, s.key(keyRecordActive)).Result()
	if err != nil {
		return false, fmt.Errorf("检查活跃再平衡记录失败: %w", err)
	}
	return count > 0, nil
}

// GetIdempotentRecordID 查询幂等键绑定的记录ID
func (s *RedisStorage) GetIdempotentRecordID(ctx context.Context, key string) (string, error) {
	recordID, err := s.client.Get(ctx, s.key(keyIdempotencyPrefix+key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("查询幂等键失败: %w", err)
	}
	return recordID, nil
}

// BindIdempotencyKey 绑定幂等键到记录（SETNX语义，不覆盖既有绑定）
func (s *RedisStorage) BindIdempotencyKey(ctx context.Context, key, recordID string, ttl time.Duration) error {
	if err := s.client.SetNX(ctx, s.key(keyIdempotencyPrefix+key), recordID, ttl).Err(); err != nil {
		return fmt.Errorf("绑定幂等键失败: %w", err)
	}
	return nil
}

// SaveAlert 保存告警
// 未消解告警维护在活跃索引中；告警本体永不删除
func (s *RedisStorage) SaveAlert(ctx context.Context, alert *model.VaultAlert) error {
	jsonData, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("序列化告警失败: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(keyAlertPrefix+alert.ID), jsonData, 0)
	pipe.ZAdd(ctx, s.key(keyAlertIDs), redis.Z{
		Score:  float64(alert.CreatedAt.Unix()),
		Member: alert.ID,
	})

	if alert.IsResolved {
		pipe.SRem(ctx, s.key(keyAlertActive), alert.ID)
	} else {
		pipe.SAdd(ctx, s.key(keyAlertActive), alert.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存告警失败: %w", err)
	}

	return nil
}

// GetAlert 获取告警
func (s *RedisStorage) GetAlert(ctx context.Context, id string) (*model.VaultAlert, error) {
	jsonData, err := s.client.Get(ctx, s.key(keyAlertPrefix+id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("获取告警失败: %w", err)
	}

	var alert model.VaultAlert
	if err := json.Unmarshal([]byte(jsonData), &alert); err != nil {
		return nil, fmt.Errorf("解析告警失败: %w", err)
	}

	return &alert, nil
}

// ListAlerts 查询告警列表（按创建时间倒序）
func (s *RedisStorage) ListAlerts(ctx context.Context, activeOnly bool) ([]*model.VaultAlert, error) {
	var ids []string
	var err error

	if activeOnly {
		ids, err = s.client.SMembers(ctx, s.key(keyAlertActive)).Result()
	} else {
		ids, err = s.client.ZRevRange(ctx, s.key(keyAlertIDs), 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("获取告警索引失败: %w", err)
	}

	alerts := make([]*model.VaultAlert, 0, len(ids))
	for _, id := range ids {
		alert, err := s.GetAlert(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// SaveVaultStatus 保存金库状态快照（最新值 + 历史有序集合）
func (s *RedisStorage) SaveVaultStatus(ctx context.Context, status *model.VaultStatus) error {
	jsonData, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("序列化金库状态失败: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(keyVaultStatusLatest), jsonData, 0)
	pipe.ZAdd(ctx, s.key(keyVaultStatusHistory), redis.Z{
		Score:  float64(status.Timestamp.Unix()),
		Member: jsonData,
	})
	pipe.Expire(ctx, s.key(keyVaultStatusHistory), time.Duration(expiryVaultSnapshot)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("保存金库状态失败: %w", err)
	}

	return nil
}

// GetLatestVaultStatus 获取最新金库状态快照
func (s *RedisStorage) GetLatestVaultStatus(ctx context.Context) (*model.VaultStatus, error) {
	jsonData, err := s.client.Get(ctx, s.key(keyVaultStatusLatest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("获取金库状态失败: %w", err)
	}

	var status model.VaultStatus
	if err := json.Unmarshal([]byte(jsonData), &status); err != nil {
		return nil, fmt.Errorf("解析金库状态失败: %w", err)
	}

	return &status, nil
}
