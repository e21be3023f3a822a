package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/oracle"
)

// mapOracle 用固定报价表实现的测试桩
type mapOracle struct {
	quotes map[string]decimal.Decimal // symbol → KRW价格
	err    error                      // 非nil时所有查询返回该错误
}

func (o *mapOracle) GetOracleName() string { return "map" }

func (o *mapOracle) GetQuote(ctx context.Context, symbol string) (*oracle.PriceQuote, error) {
	if o.err != nil {
		return nil, o.err
	}
	krw, ok := o.quotes[symbol]
	if !ok {
		return nil, oracle.ErrPriceUnavailable
	}
	return &oracle.PriceQuote{
		Symbol: symbol,
		KRW:    krw,
		USD:    krw.Div(decimal.NewFromInt(1300)),
	}, nil
}

func TestValuator_ValueAssets(t *testing.T) {
	source := &mapOracle{
		quotes: map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(100_000_000),
			"ETH": decimal.NewFromInt(5_000_000),
		},
	}
	valuator := NewValuator(source, zaptest.NewLogger(t))

	balances := []RawBalance{
		{Symbol: "BTC", Balance: decimal.NewFromFloat(0.5)},
		{Symbol: "ETH", Balance: decimal.NewFromInt(10)},
	}

	assets, total, err := valuator.ValueAssets(context.Background(), balances)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	// 0.5 BTC * 100M + 10 ETH * 5M = 100M
	assert.True(t, total.TotalInKRW.Equal(decimal.NewFromInt(100_000_000)),
		"估值总额应为100M，实际为%s", total.TotalInKRW)
	assert.False(t, total.Incomplete)
	assert.Empty(t, total.UnpricedSymbols)
}

func TestValuator_ValueAssets_UnknownSymbol(t *testing.T) {
	source := &mapOracle{
		quotes: map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(100_000_000),
		},
	}
	valuator := NewValuator(source, zaptest.NewLogger(t))

	balances := []RawBalance{
		{Symbol: "BTC", Balance: decimal.NewFromInt(1)},
		{Symbol: "UNKNOWN", Balance: decimal.NewFromInt(999)},
	}

	assets, total, err := valuator.ValueAssets(context.Background(), balances)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	// 无法定价的资产估值记为0并标记，不中断整体聚合
	assert.True(t, assets[1].ValueInKRW.IsZero())
	assert.True(t, assets[1].PriceMissing)
	assert.True(t, total.Incomplete)
	assert.Equal(t, []string{"UNKNOWN"}, total.UnpricedSymbols)

	// 可定价资产照常计入汇总
	assert.True(t, total.TotalInKRW.Equal(decimal.NewFromInt(100_000_000)))
}

func TestValuator_ValueAssets_OracleDown(t *testing.T) {
	source := &mapOracle{err: errors.New("connection refused")}
	valuator := NewValuator(source, zaptest.NewLogger(t))

	// 行情源不可达属于外部服务错误，整体估值失败
	_, _, err := valuator.ValueAssets(context.Background(), []RawBalance{
		{Symbol: "BTC", Balance: decimal.NewFromInt(1)},
	})
	assert.Error(t, err)
}

func TestValuator_ValueAssets_ZeroBalanceRetained(t *testing.T) {
	source := &mapOracle{
		quotes: map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(100_000_000),
		},
	}
	valuator := NewValuator(source, zaptest.NewLogger(t))

	// 余额为0的资产显式保留，下游拿到完整的资产集合
	assets, total, err := valuator.ValueAssets(context.Background(), []RawBalance{
		{Symbol: "BTC", Balance: decimal.Zero},
	})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.True(t, assets[0].ValueInKRW.IsZero())
	assert.True(t, total.TotalInKRW.IsZero())
}

func TestCombineTotals(t *testing.T) {
	hot := model.TotalValue{
		TotalInKRW: decimal.NewFromInt(20_000_000),
		TotalInUSD: decimal.NewFromInt(15_000),
	}
	cold := model.TotalValue{
		TotalInKRW:      decimal.NewFromInt(80_000_000),
		TotalInUSD:      decimal.NewFromInt(60_000),
		Incomplete:      true,
		UnpricedSymbols: []string{"UNKNOWN"},
	}

	combined := CombineTotals(hot, cold)

	assert.True(t, combined.TotalInKRW.Equal(decimal.NewFromInt(100_000_000)))
	assert.True(t, combined.TotalInUSD.Equal(decimal.NewFromInt(75_000)))
	// 任一侧不完整则金库级汇总不完整
	assert.True(t, combined.Incomplete)
	assert.Equal(t, []string{"UNKNOWN"}, combined.UnpricedSymbols)
}
