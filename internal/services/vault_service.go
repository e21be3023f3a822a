package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/alert"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/monitor"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/oracle"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/rebalancing"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/storage"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/vault"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/wallet"
)

// VaultService 金库引擎对外门面
// UI消费的最小接口契约在这里汇总：状态查询、再平衡测算与提交、历史、告警
type VaultService struct {
	logger         *zap.Logger
	vaultMonitor   *monitor.VaultMonitor
	calculator     *vault.Calculator
	processor      *rebalancing.Processor
	alertEvaluator *alert.Evaluator
	priceOracle    oracle.PriceOracle
	provider       wallet.BalanceProvider
	store          storage.Storage
}

// NewVaultService 创建金库引擎门面
func NewVaultService(
	logger *zap.Logger,
	vaultMonitor *monitor.VaultMonitor,
	calculator *vault.Calculator,
	processor *rebalancing.Processor,
	alertEvaluator *alert.Evaluator,
	priceOracle oracle.PriceOracle,
	provider wallet.BalanceProvider,
	store storage.Storage,
) *VaultService {
	return &VaultService{
		logger:         logger.With(zap.String("component", "vault_service")),
		vaultMonitor:   vaultMonitor,
		calculator:     calculator,
		processor:      processor,
		alertEvaluator: alertEvaluator,
		priceOracle:    priceOracle,
		provider:       provider,
		store:          store,
	}
}

// GetVaultStatus 获取当前金库状态
// 优先返回监控器缓存的最新快照，冷启动时回落到持久化快照
func (s *VaultService) GetVaultStatus(ctx context.Context) (*model.VaultStatus, error) {
	if status := s.vaultMonitor.Latest(); status != nil {
		return status, nil
	}

	status, err := s.store.GetLatestVaultStatus(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("金库状态尚未就绪")
		}
		return nil, err
	}
	return status, nil
}

// GetRebalancingCalculation 按需测算再平衡转账
// targetHotRatio为nil时使用策略目标比例
func (s *VaultService) GetRebalancingCalculation(ctx context.Context, targetHotRatio *decimal.Decimal) (*model.RebalancingCalculation, error) {
	status, err := s.GetVaultStatus(ctx)
	if err != nil {
		return nil, err
	}

	hotKRW := status.HotWallet.TotalValue.TotalInKRW
	coldKRW := status.ColdWallet.TotalValue.TotalInKRW

	if targetHotRatio != nil {
		return s.calculator.CalculateWithTarget(ctx, hotKRW, coldKRW, *targetHotRatio)
	}
	return s.calculator.Calculate(ctx, hotKRW, coldKRW)
}

// SubmitRebalancingRequest 提交再平衡请求
// 校验余额充足性并完成KRW估值后交给处理器；幂等键保证UI重试安全
func (s *VaultService) SubmitRebalancingRequest(ctx context.Context, req *model.RebalancingRequest, idempotencyKey string) (*model.RebalancingRecord, error) {
	// 先做结构校验，避免对非法请求做余额查询
	if err := rebalancing.ValidateRequest(req); err != nil {
		return nil, err
	}

	amountInKRW, err := s.valueAndCheckBalances(ctx, req.Assets)
	if err != nil {
		return nil, err
	}

	return s.processor.Submit(ctx, req, idempotencyKey, amountInKRW)
}

// CancelRebalancing 取消再平衡请求（仅限尚未广播链上交易的状态）
func (s *VaultService) CancelRebalancing(ctx context.Context, id, reason string) (*model.RebalancingRecord, error) {
	return s.processor.Cancel(ctx, id, reason)
}

// GetRebalancingRecord 查询单条再平衡记录
func (s *VaultService) GetRebalancingRecord(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	return s.processor.GetRecord(ctx, id)
}

// ListRebalancingHistory 按条件查询再平衡历史
func (s *VaultService) ListRebalancingHistory(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error) {
	return s.processor.ListHistory(ctx, filter)
}

// ResolveAlert 消解告警（幂等）
func (s *VaultService) ResolveAlert(ctx context.Context, alertID string) error {
	return s.alertEvaluator.Resolve(ctx, alertID)
}

// ListAlerts 查询告警列表
func (s *VaultService) ListAlerts(ctx context.Context, activeOnly bool) ([]*model.VaultAlert, error) {
	return s.alertEvaluator.ListAlerts(ctx, activeOnly)
}

// valueAndCheckBalances 校验各资产不超过源钱包余额并汇总KRW估值
// 显式指定资产的请求不允许部分执行，余额不足直接拒绝
func (s *VaultService) valueAndCheckBalances(ctx context.Context, transfers []model.AssetTransfer) (decimal.Decimal, error) {
	snapshots := make(map[model.WalletKind]map[string]decimal.Decimal)

	amountInKRW := decimal.Zero
	for _, transfer := range transfers {
		balances, ok := snapshots[transfer.FromWallet]
		if !ok {
			snapshot, err := s.provider.GetSnapshot(ctx, transfer.FromWallet)
			if err != nil {
				return decimal.Zero, fmt.Errorf("读取%s钱包余额失败: %w", transfer.FromWallet, err)
			}
			balances = make(map[string]decimal.Decimal, len(snapshot.Balances))
			for _, raw := range snapshot.Balances {
				balances[raw.Symbol] = raw.Balance
			}
			snapshots[transfer.FromWallet] = balances
		}

		available := balances[transfer.Symbol]
		if transfer.Amount.GreaterThan(available) {
			return decimal.Zero, &rebalancing.InsufficientBalanceError{
				Symbol:    transfer.Symbol,
				Requested: transfer.Amount,
				Available: available,
			}
		}

		quote, err := s.priceOracle.GetQuote(ctx, transfer.Symbol)
		if err != nil {
			if errors.Is(err, oracle.ErrPriceUnavailable) {
				// 无法定价的资产不计入KRW汇总，但不阻断提交
				s.logger.Warn("请求资产价格不可用，KRW估值记为0",
					zap.String("symbol", transfer.Symbol))
				continue
			}
			return decimal.Zero, err
		}
		amountInKRW = amountInKRW.Add(transfer.Amount.Mul(quote.KRW))
	}

	return amountInKRW, nil
}
