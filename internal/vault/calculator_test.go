package vault

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// flatFeeEstimator 返回固定手续费的测试桩
// vault包的测试不能引用mocks包（会形成导入环），用本地桩替代
type flatFeeEstimator struct {
	fee decimal.Decimal
}

func (f *flatFeeEstimator) EstimateTransferFee(ctx context.Context, network string, amountKRW decimal.Decimal) (decimal.Decimal, error) {
	return f.fee, nil
}

func newTestCalculator() *Calculator {
	return NewCalculator(testPolicy(), &flatFeeEstimator{fee: decimal.NewFromInt(1000)})
}

func TestCalculator_Calculate(t *testing.T) {
	calculator := newTestCalculator()
	ctx := context.Background()

	krw := func(millions int64) decimal.Decimal {
		return decimal.NewFromInt(millions * 1_000_000)
	}

	tests := []struct {
		name              string
		hotKRW            decimal.Decimal
		coldKRW           decimal.Decimal
		expectedDirection model.RebalanceDirection
		expectedAmount    decimal.Decimal
	}{
		{
			name:              "热钱包超配-向冷钱包归集",
			hotKRW:            krw(35),
			coldKRW:           krw(65),
			expectedDirection: model.DirectionHotToCold,
			expectedAmount:    krw(15),
		},
		{
			name:              "冷钱包超配-向热钱包补充流动性",
			hotKRW:            krw(10),
			coldKRW:           krw(90),
			expectedDirection: model.DirectionColdToHot,
			expectedAmount:    krw(10),
		},
		{
			name:              "轻微超配-小额归集",
			hotKRW:            krw(22),
			coldKRW:           krw(78),
			expectedDirection: model.DirectionHotToCold,
			expectedAmount:    krw(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := calculator.Calculate(ctx, tt.hotKRW, tt.coldKRW)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedDirection, calc.Direction)
			assert.True(t, calc.RequiredTransferAmount.Equal(tt.expectedAmount),
				"转账金额应为%s，实际为%s", tt.expectedAmount, calc.RequiredTransferAmount)

			// 按测算金额转账后应恰好回到目标比例
			assert.True(t, calc.AfterHotRatio.Equal(decimal.NewFromInt(20)),
				"转账后热钱包比例应为20，实际为%s", calc.AfterHotRatio)
			assert.True(t, calc.AfterDeviation.IsZero())
			assert.False(t, calc.PartialCorrection)
		})
	}
}

func TestCalculator_Calculate_NoOpWhenBalanced(t *testing.T) {
	calculator := newTestCalculator()

	// 偏差为零：返回零额空操作而不是错误
	calc, err := calculator.Calculate(context.Background(),
		decimal.NewFromInt(20_000_000), decimal.NewFromInt(80_000_000))
	require.NoError(t, err)

	assert.Equal(t, model.DirectionNone, calc.Direction)
	assert.True(t, calc.RequiredTransferAmount.IsZero())
	assert.True(t, calc.EstimatedFee.IsZero())
}

func TestCalculator_Calculate_EmptyVault(t *testing.T) {
	calculator := newTestCalculator()

	calc, err := calculator.Calculate(context.Background(), decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, model.DirectionNone, calc.Direction)
	assert.True(t, calc.RequiredTransferAmount.IsZero())
}

func TestCalculator_CalculateWithTarget(t *testing.T) {
	calculator := newTestCalculator()

	// 临时目标30：总额100M时热钱包应为30M，需要从冷钱包补10M
	target := decimal.NewFromInt(30)
	calc, err := calculator.CalculateWithTarget(context.Background(),
		decimal.NewFromInt(20_000_000), decimal.NewFromInt(80_000_000), target)
	require.NoError(t, err)

	assert.Equal(t, model.DirectionColdToHot, calc.Direction)
	assert.True(t, calc.RequiredTransferAmount.Equal(decimal.NewFromInt(10_000_000)))
	assert.True(t, calc.AfterHotRatio.Equal(target))
}

func TestCalculator_CalculateConstrained_PartialCorrection(t *testing.T) {
	calculator := newTestCalculator()

	// 完全修正需要15M，但源钱包只有5M可用：按可用余额截断并标记部分修正
	available := decimal.NewFromInt(5_000_000)
	calc, err := calculator.CalculateConstrained(context.Background(),
		decimal.NewFromInt(35_000_000), decimal.NewFromInt(65_000_000),
		decimal.NewFromInt(20), &available)
	require.NoError(t, err)

	assert.Equal(t, model.DirectionHotToCold, calc.Direction)
	assert.True(t, calc.RequiredTransferAmount.Equal(available))
	assert.True(t, calc.PartialCorrection)

	// 部分修正后比例为30，仍未达到目标但偏差已缩小
	assert.True(t, calc.AfterHotRatio.Equal(decimal.NewFromInt(30)))
	assert.False(t, calc.AfterDeviation.IsZero())
}

func TestCalculator_Calculate_DeviationNeverIncreases(t *testing.T) {
	calculator := newTestCalculator()
	ctx := context.Background()
	target := decimal.NewFromInt(20)

	// 任意输入下，按测算结果转账后的偏差绝对值不得大于转账前
	cases := []struct {
		hot  int64
		cold int64
	}{
		{35_000_000, 65_000_000},
		{5_000_000, 95_000_000},
		{50_000_000, 50_000_000},
		{99_000_000, 1_000_000},
		{20_000_001, 79_999_999},
	}

	for _, c := range cases {
		hot := decimal.NewFromInt(c.hot)
		cold := decimal.NewFromInt(c.cold)

		before := hot.Div(hot.Add(cold)).Mul(decimal.NewFromInt(100)).Sub(target).Abs()

		calc, err := calculator.Calculate(ctx, hot, cold)
		require.NoError(t, err)

		assert.True(t, calc.AfterDeviation.Abs().LessThanOrEqual(before),
			"hot=%d cold=%d: 转账后偏差%s不应大于转账前%s",
			c.hot, c.cold, calc.AfterDeviation.Abs(), before)
	}
}

func TestCalculator_Calculate_Deterministic(t *testing.T) {
	calculator := newTestCalculator()
	ctx := context.Background()

	hot := decimal.NewFromInt(37_500_000)
	cold := decimal.NewFromInt(62_500_000)

	first, err := calculator.Calculate(ctx, hot, cold)
	require.NoError(t, err)
	second, err := calculator.Calculate(ctx, hot, cold)
	require.NoError(t, err)

	// 相同输入必须产出完全一致的结果
	assert.Equal(t, first.Direction, second.Direction)
	assert.True(t, first.RequiredTransferAmount.Equal(second.RequiredTransferAmount))
	assert.True(t, first.AfterHotRatio.Equal(second.AfterHotRatio))
	assert.True(t, first.EstimatedFee.Equal(second.EstimatedFee))
}
