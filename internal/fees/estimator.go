package fees

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/config"
)

// Estimator 转账手续费估算接口
// 再平衡计算器只记录估算结果，不自行发明手续费
type Estimator interface {
	// EstimateTransferFee 估算一笔KRW计价转账的手续费
	// network为空时使用默认费率
	EstimateTransferFee(ctx context.Context, network string, amountKRW decimal.Decimal) (decimal.Decimal, error)
}

var bpsDivisor = decimal.NewFromInt(10000)

// PolicyEstimator 按配置费率估算手续费
// 费率与最低手续费按网络维度配置，未配置的网络回落到默认值
type PolicyEstimator struct {
	defaultRateBps decimal.Decimal
	defaultMinKRW  decimal.Decimal
	networks       map[string]networkFee
}

type networkFee struct {
	rateBps decimal.Decimal
	minKRW  decimal.Decimal
}

// NewPolicyEstimator 从配置创建手续费估算器
func NewPolicyEstimator(cfg config.FeesConfig) *PolicyEstimator {
	networks := make(map[string]networkFee, len(cfg.Networks))
	for name, fee := range cfg.Networks {
		networks[name] = networkFee{
			rateBps: decimal.NewFromFloat(fee.RateBps),
			minKRW:  decimal.NewFromFloat(fee.MinFeeKRW),
		}
	}

	return &PolicyEstimator{
		defaultRateBps: decimal.NewFromFloat(cfg.DefaultRateBps),
		defaultMinKRW:  decimal.NewFromFloat(cfg.MinFeeKRW),
		networks:       networks,
	}
}

// EstimateTransferFee 实现Estimator接口
func (e *PolicyEstimator) EstimateTransferFee(ctx context.Context, network string, amountKRW decimal.Decimal) (decimal.Decimal, error) {
	rateBps := e.defaultRateBps
	minKRW := e.defaultMinKRW
	if fee, ok := e.networks[network]; ok {
		rateBps = fee.rateBps
		minKRW = fee.minKRW
	}

	if amountKRW.IsZero() {
		// 零额转账不产生手续费
		return decimal.Zero, nil
	}

	fee := amountKRW.Mul(rateBps).Div(bpsDivisor)
	if fee.LessThan(minKRW) {
		fee = minKRW
	}

	return fee, nil
}
