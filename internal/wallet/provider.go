package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/vault"
)

// Redis 键前缀常量
// 余额和元数据由托管钱包守护进程写入，本服务只读
const (
	keyBalancesPrefix = "wallet:balances:"
	keyMetaPrefix     = "wallet:meta:"
)

// ErrWalletUnavailable 钱包守护进程尚未上报数据
var ErrWalletUnavailable = errors.New("钱包数据不可用")

// Snapshot 单个钱包的余额与健康快照
type Snapshot struct {
	Kind            model.WalletKind
	Balances        []vault.RawBalance
	Status          model.WalletStatus
	SecurityLevel   model.SecurityLevel
	HealthScore     int
	UtilizationRate decimal.Decimal
}

// walletMeta 守护进程上报的钱包元数据
type walletMeta struct {
	Status          model.WalletStatus  `json:"status"`
	SecurityLevel   model.SecurityLevel `json:"security_level,omitempty"`
	HealthScore     int                 `json:"health_score"`
	UtilizationRate decimal.Decimal     `json:"utilization_rate"`
}

// BalanceProvider 钱包余额数据源接口
type BalanceProvider interface {
	GetSnapshot(ctx context.Context, kind model.WalletKind) (*Snapshot, error)
}

// RedisBalanceProvider 从Redis读取钱包守护进程上报的余额
type RedisBalanceProvider struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisBalanceProvider 创建Redis余额数据源
func NewRedisBalanceProvider(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisBalanceProvider {
	return &RedisBalanceProvider{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// GetSnapshot 读取指定钱包的余额与健康快照
func (p *RedisBalanceProvider) GetSnapshot(ctx context.Context, kind model.WalletKind) (*Snapshot, error) {
	balanceKey := p.keyPrefix + keyBalancesPrefix + string(kind)
	metaKey := p.keyPrefix + keyMetaPrefix + string(kind)

	balanceMap, err := p.client.HGetAll(ctx, balanceKey).Result()
	if err != nil {
		return nil, fmt.Errorf("读取钱包余额失败: %w", err)
	}
	if len(balanceMap) == 0 {
		return nil, ErrWalletUnavailable
	}

	balances := make([]vault.RawBalance, 0, len(balanceMap))
	for symbol, raw := range balanceMap {
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			// 单个资产解析失败不拖垮整个快照
			p.logger.Warn("解析钱包余额失败",
				zap.String("wallet", string(kind)),
				zap.String("symbol", symbol),
				zap.String("raw", raw),
				zap.Error(err))
			continue
		}
		balances = append(balances, vault.RawBalance{
			Symbol:  symbol,
			Balance: balance,
		})
	}

	snapshot := &Snapshot{
		Kind:     kind,
		Balances: balances,
		// 元数据缺失时的保守默认值
		Status:      model.WalletStatusNormal,
		HealthScore: 100,
	}

	metaJSON, err := p.client.Get(ctx, metaKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("读取钱包元数据失败: %w", err)
		}
		p.logger.Debug("钱包元数据缺失，使用默认值", zap.String("wallet", string(kind)))
		return snapshot, nil
	}

	var meta walletMeta
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("解析钱包元数据失败: %w", err)
	}

	if meta.Status.Valid() {
		snapshot.Status = meta.Status
	}
	snapshot.SecurityLevel = meta.SecurityLevel
	snapshot.HealthScore = meta.HealthScore
	snapshot.UtilizationRate = meta.UtilizationRate

	return snapshot, nil
}
