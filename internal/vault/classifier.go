package vault

import (
	"github.com/shopspring/decimal"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/config"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// Policy 热冷钱包配比策略
// 阈值梯度来自配置，调用方不允许硬编码
type Policy struct {
	TargetHotRatio      decimal.Decimal
	TargetColdRatio     decimal.Decimal
	OptimalDeviation    decimal.Decimal
	AcceptableDeviation decimal.Decimal
	WarningDeviation    decimal.Decimal
	RebalanceThreshold  decimal.Decimal
}

// PolicyFromConfig 从配置构建策略
func PolicyFromConfig(cfg config.VaultConfig) Policy {
	return Policy{
		TargetHotRatio:      decimal.NewFromFloat(cfg.TargetHotRatio),
		TargetColdRatio:     decimal.NewFromFloat(cfg.TargetColdRatio),
		OptimalDeviation:    decimal.NewFromFloat(cfg.OptimalDeviation),
		AcceptableDeviation: decimal.NewFromFloat(cfg.AcceptableDeviation),
		WarningDeviation:    decimal.NewFromFloat(cfg.WarningDeviation),
		RebalanceThreshold:  decimal.NewFromFloat(cfg.RebalanceThreshold),
	}
}

var hundred = decimal.NewFromInt(100)

// Classifier 热冷比例偏差分级器
type Classifier struct {
	policy Policy
}

// NewClassifier 创建偏差分级器
func NewClassifier(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Policy 返回当前策略
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify 计算热冷比例并按策略阈值分级
// 总额为0时比例定义为0/0且分级为OPTIMAL，避免除零
func (c *Classifier) Classify(hotTotalKRW, coldTotalKRW decimal.Decimal) model.BalanceStatus {
	status := model.BalanceStatus{
		TargetHotRatio:  c.policy.TargetHotRatio,
		TargetColdRatio: c.policy.TargetColdRatio,
	}

	total := hotTotalKRW.Add(coldTotalKRW)
	if total.IsZero() {
		// 没有资金就谈不上错配
		status.HotRatio = decimal.Zero
		status.ColdRatio = decimal.Zero
		status.Deviation = decimal.Zero
		status.DeviationStatus = model.DeviationOptimal
		status.NeedsRebalancing = false
		return status
	}

	status.HotRatio = hotTotalKRW.Div(total).Mul(hundred)
	status.ColdRatio = hundred.Sub(status.HotRatio)
	status.Deviation = status.HotRatio.Sub(c.policy.TargetHotRatio)

	absDeviation := status.Deviation.Abs()
	status.DeviationStatus = c.classifyDeviation(absDeviation)
	status.NeedsRebalancing = absDeviation.GreaterThan(c.policy.RebalanceThreshold)

	return status
}

// classifyDeviation 按绝对偏差分级，阈值上界为闭区间
func (c *Classifier) classifyDeviation(absDeviation decimal.Decimal) model.DeviationStatus {
	switch {
	case absDeviation.LessThanOrEqual(c.policy.OptimalDeviation):
		return model.DeviationOptimal
	case absDeviation.LessThanOrEqual(c.policy.AcceptableDeviation):
		return model.DeviationAcceptable
	case absDeviation.LessThanOrEqual(c.policy.WarningDeviation):
		return model.DeviationWarning
	default:
		return model.DeviationCritical
	}
}
