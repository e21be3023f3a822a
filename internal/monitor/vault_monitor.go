package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/alert"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/vault"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/wallet"
)

// 常量定义
const (
	DefaultCheckInterval = 10 * time.Second
	DefaultStatsInterval = 30 * time.Second
)

// StatusSink 金库状态快照的持久化接口
type StatusSink interface {
	SaveVaultStatus(ctx context.Context, status *model.VaultStatus) error
}

// RecordLister 再平衡记录查询接口（用于成功率统计）
type RecordLister interface {
	ListRecords(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error)
}

// VaultMonitor 金库监控组件
// 每个轮询周期整体重算VaultStatus，不做部分更新；最新快照缓存在内存中，
// 多个轮询方可以并发读取
type VaultMonitor struct {
	provider       wallet.BalanceProvider
	valuator       *vault.Valuator
	classifier     *vault.Classifier
	alertEvaluator *alert.Evaluator
	sink           StatusSink
	records        RecordLister
	logger         *zap.Logger

	checkInterval time.Duration
	statsInterval time.Duration

	mu     sync.RWMutex
	latest *model.VaultStatus

	// 轮询计数，用于uptime统计
	pollTotal   int64
	pollFailed  int64
	successRate decimal.Decimal
}

// NewVaultMonitor 创建金库监控组件
func NewVaultMonitor(
	provider wallet.BalanceProvider,
	valuator *vault.Valuator,
	classifier *vault.Classifier,
	alertEvaluator *alert.Evaluator,
	sink StatusSink,
	records RecordLister,
	logger *zap.Logger,
) *VaultMonitor {
	return &VaultMonitor{
		provider:       provider,
		valuator:       valuator,
		classifier:     classifier,
		alertEvaluator: alertEvaluator,
		sink:           sink,
		records:        records,
		logger:         logger.With(zap.String("component", "vault_monitor")),
		checkInterval:  DefaultCheckInterval,
		statsInterval:  DefaultStatsInterval,
		successRate:    decimal.NewFromInt(100),
	}
}

// SetCheckInterval 设置监控间隔
func (m *VaultMonitor) SetCheckInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	m.checkInterval = interval
}

// SetStatsInterval 设置统计刷新间隔
func (m *VaultMonitor) SetStatsInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	m.statsInterval = interval
}

// Start 启动监控
func (m *VaultMonitor) Start(ctx context.Context) error {
	m.logger.Info("启动金库监控器",
		zap.Duration("check_interval", m.checkInterval),
		zap.Duration("stats_interval", m.statsInterval))

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(m.statsInterval)
	defer statsTicker.Stop()

	// 立即执行一次检查
	if err := m.refresh(ctx); err != nil {
		m.logger.Error("首次金库状态刷新失败", zap.Error(err))
	}
	m.refreshStats(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.refresh(ctx); err != nil {
				m.logger.Error("金库状态刷新失败", zap.Error(err))
			}
		case <-statsTicker.C:
			m.refreshStats(ctx)
		}
	}
}

// Latest 获取最新金库状态快照，尚无快照时返回nil
// 快照生成后不再修改，调用方只读使用
func (m *VaultMonitor) Latest() *model.VaultStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// refresh 执行一次完整的状态重算
func (m *VaultMonitor) refresh(ctx context.Context) error {
	m.mu.Lock()
	m.pollTotal++
	m.mu.Unlock()

	status, err := m.buildStatus(ctx)
	if err != nil {
		m.mu.Lock()
		m.pollFailed++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.latest = status
	m.mu.Unlock()

	// 快照持久化失败不影响内存状态
	if err := m.sink.SaveVaultStatus(ctx, status); err != nil {
		m.logger.Error("持久化金库状态失败", zap.Error(err))
	}

	// 告警评估基于同一份快照
	if err := m.alertEvaluator.EvaluateBalance(ctx, status.BalanceStatus); err != nil {
		m.logger.Error("偏差告警评估失败", zap.Error(err))
	}
	if err := m.alertEvaluator.EvaluateWalletHealth(ctx, status.HotWallet); err != nil {
		m.logger.Error("热钱包健康告警评估失败", zap.Error(err))
	}
	if err := m.alertEvaluator.EvaluateWalletHealth(ctx, status.ColdWallet); err != nil {
		m.logger.Error("冷钱包健康告警评估失败", zap.Error(err))
	}

	return nil
}

// buildStatus 从最新余额快照构建金库状态
func (m *VaultMonitor) buildStatus(ctx context.Context) (*model.VaultStatus, error) {
	hotInfo, err := m.buildWalletInfo(ctx, model.WalletHot)
	if err != nil {
		return nil, err
	}
	coldInfo, err := m.buildWalletInfo(ctx, model.WalletCold)
	if err != nil {
		return nil, err
	}

	balanceStatus := m.classifier.Classify(
		hotInfo.TotalValue.TotalInKRW,
		coldInfo.TotalValue.TotalInKRW,
	)

	m.mu.RLock()
	uptime := m.uptimeLocked()
	successRate := m.successRate
	m.mu.RUnlock()

	status := &model.VaultStatus{
		HotWallet:     *hotInfo,
		ColdWallet:    *coldInfo,
		TotalValue:    vault.CombineTotals(hotInfo.TotalValue, coldInfo.TotalValue),
		BalanceStatus: balanceStatus,
		Performance: model.VaultPerformance{
			Uptime:      uptime,
			SuccessRate: successRate,
		},
		Timestamp: time.Now(),
	}

	m.logger.Debug("金库状态已刷新",
		zap.String("hot_ratio", balanceStatus.HotRatio.StringFixed(2)),
		zap.String("deviation_status", string(balanceStatus.DeviationStatus)),
		zap.Bool("needs_rebalancing", balanceStatus.NeedsRebalancing))

	return status, nil
}

// buildWalletInfo 拉取并估值单个钱包
func (m *VaultMonitor) buildWalletInfo(ctx context.Context, kind model.WalletKind) (*model.WalletInfo, error) {
	snapshot, err := m.provider.GetSnapshot(ctx, kind)
	if err != nil {
		return nil, err
	}

	assets, total, err := m.valuator.ValueAssets(ctx, snapshot.Balances)
	if err != nil {
		return nil, err
	}

	return &model.WalletInfo{
		WalletKind:      kind,
		Assets:          assets,
		TotalValue:      total,
		UtilizationRate: snapshot.UtilizationRate,
		Status:          snapshot.Status,
		SecurityLevel:   snapshot.SecurityLevel,
		HealthScore:     snapshot.HealthScore,
	}, nil
}

// uptimeLocked 按轮询成功率计算uptime百分比，调用方需持有读锁
func (m *VaultMonitor) uptimeLocked() decimal.Decimal {
	if m.pollTotal == 0 {
		return decimal.NewFromInt(100)
	}
	succeeded := m.pollTotal - m.pollFailed
	return decimal.NewFromInt(succeeded).
		Div(decimal.NewFromInt(m.pollTotal)).
		Mul(decimal.NewFromInt(100))
}

// refreshStats 按终态记录重算再平衡成功率
func (m *VaultMonitor) refreshStats(ctx context.Context) {
	records, err := m.records.ListRecords(ctx, nil)
	if err != nil {
		m.logger.Error("查询再平衡记录失败", zap.Error(err))
		return
	}

	terminal := 0
	succeeded := 0
	for _, record := range records {
		if !record.Status.Terminal() {
			continue
		}
		terminal++
		if record.Status == model.StatusCompleted {
			succeeded++
		}
	}

	rate := decimal.NewFromInt(100)
	if terminal > 0 {
		rate = decimal.NewFromInt(int64(succeeded)).
			Div(decimal.NewFromInt(int64(terminal))).
			Mul(decimal.NewFromInt(100))
	}

	m.mu.Lock()
	m.successRate = rate
	m.mu.Unlock()
}
