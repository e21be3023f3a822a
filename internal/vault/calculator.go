package vault

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/fees"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// Calculator 再平衡转账测算器
// 给定相同输入必须产出完全一致的结果：不依赖时钟，不引入随机性
type Calculator struct {
	policy       Policy
	feeEstimator fees.Estimator
}

// NewCalculator 创建再平衡测算器
func NewCalculator(policy Policy, feeEstimator fees.Estimator) *Calculator {
	return &Calculator{
		policy:       policy,
		feeEstimator: feeEstimator,
	}
}

// Calculate 按策略目标比例测算再平衡转账
// 源钱包可用余额取其全部KRW估值
func (c *Calculator) Calculate(ctx context.Context, hotTotalKRW, coldTotalKRW decimal.Decimal) (*model.RebalancingCalculation, error) {
	return c.CalculateWithTarget(ctx, hotTotalKRW, coldTotalKRW, c.policy.TargetHotRatio)
}

// CalculateWithTarget 按指定目标热钱包比例测算再平衡转账
// 偏差为零时返回零额空操作而不是错误
func (c *Calculator) CalculateWithTarget(ctx context.Context, hotTotalKRW, coldTotalKRW, targetHotRatio decimal.Decimal) (*model.RebalancingCalculation, error) {
	return c.CalculateConstrained(ctx, hotTotalKRW, coldTotalKRW, targetHotRatio, nil)
}

// CalculateConstrained 在源钱包可用余额受限时测算再平衡转账
// availableSourceKRW为nil时取源钱包全部估值；测算金额超出可用余额时
// 按可用余额截断并标记部分修正
func (c *Calculator) CalculateConstrained(ctx context.Context, hotTotalKRW, coldTotalKRW, targetHotRatio decimal.Decimal, availableSourceKRW *decimal.Decimal) (*model.RebalancingCalculation, error) {
	total := hotTotalKRW.Add(coldTotalKRW)

	calc := &model.RebalancingCalculation{
		CurrentHotValue:   hotTotalKRW,
		CurrentColdValue:  coldTotalKRW,
		CurrentTotalValue: total,
	}

	if total.IsZero() {
		// 没有资金，无事可做
		calc.Direction = model.DirectionNone
		calc.RequiredTransferAmount = decimal.Zero
		calc.EstimatedFee = decimal.Zero
		calc.AfterHotRatio = decimal.Zero
		calc.AfterColdRatio = decimal.Zero
		calc.AfterDeviation = decimal.Zero
		return calc, nil
	}

	hotRatio := hotTotalKRW.Div(total).Mul(hundred)
	deviation := hotRatio.Sub(targetHotRatio)
	targetColdRatio := hundred.Sub(targetHotRatio)

	// 按方向求解转账金额x，使转账后恰好回到目标比例
	var amount decimal.Decimal
	var available decimal.Decimal
	switch {
	case deviation.IsPositive():
		// 热钱包超配，向冷钱包归集
		calc.Direction = model.DirectionHotToCold
		amount = hotTotalKRW.Sub(targetHotRatio.Div(hundred).Mul(total))
		available = hotTotalKRW
	case deviation.IsNegative():
		// 冷钱包超配，向热钱包补充流动性
		calc.Direction = model.DirectionColdToHot
		amount = coldTotalKRW.Sub(targetColdRatio.Div(hundred).Mul(total))
		available = coldTotalKRW
	default:
		// 偏差为零：报告零额空操作
		calc.Direction = model.DirectionNone
		calc.RequiredTransferAmount = decimal.Zero
		calc.EstimatedFee = decimal.Zero
		calc.AfterHotRatio = hotRatio
		calc.AfterColdRatio = hundred.Sub(hotRatio)
		calc.AfterDeviation = decimal.Zero
		return calc, nil
	}

	// 金额不允许为负
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	// 调用方显式给出可用余额时以其为准（锁定资金等场景）
	if availableSourceKRW != nil {
		available = *availableSourceKRW
	}

	// 超出源钱包可用余额时按可用余额截断并标记部分修正
	// 调用方不得将部分修正当作完全修正上报
	if amount.GreaterThan(available) {
		amount = available
		calc.PartialCorrection = true
	}

	calc.RequiredTransferAmount = amount

	// 手续费由外部协作方估算，这里只记录结果
	fee, err := c.feeEstimator.EstimateTransferFee(ctx, "", amount)
	if err != nil {
		return nil, err
	}
	calc.EstimatedFee = fee

	// 转账后的预测比例（转账不改变总额，手续费不计入比例预测）
	var afterHot, afterCold decimal.Decimal
	if calc.Direction == model.DirectionHotToCold {
		afterHot = hotTotalKRW.Sub(amount)
		afterCold = coldTotalKRW.Add(amount)
	} else {
		afterHot = hotTotalKRW.Add(amount)
		afterCold = coldTotalKRW.Sub(amount)
	}

	calc.AfterHotRatio = afterHot.Div(total).Mul(hundred)
	calc.AfterColdRatio = afterCold.Div(total).Mul(hundred)
	calc.AfterDeviation = calc.AfterHotRatio.Sub(targetHotRatio)

	return calc, nil
}
