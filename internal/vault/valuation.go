package vault

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/oracle"
)

// RawBalance 钱包守护进程上报的原始余额
type RawBalance struct {
	Symbol  string          `json:"symbol"`
	Balance decimal.Decimal `json:"balance"`
}

// Valuator 资产估值聚合器
// 纯计算组件：给定余额和报价，输出确定的估值结果，无任何副作用
type Valuator struct {
	priceOracle oracle.PriceOracle
	logger      *zap.Logger
}

// NewValuator 创建资产估值聚合器
func NewValuator(priceOracle oracle.PriceOracle, logger *zap.Logger) *Valuator {
	return &Valuator{
		priceOracle: priceOracle,
		logger:      logger,
	}
}

// ValueAssets 将原始余额列表转换为带KRW/USD估值的资产列表并汇总
// 无法定价的资产估值记为0并标记，不中断整体聚合
// 余额为0的资产显式保留，保证下游比例计算拿到完整的资产集合
func (v *Valuator) ValueAssets(ctx context.Context, balances []RawBalance) ([]model.AssetBalance, model.TotalValue, error) {
	assets := make([]model.AssetBalance, 0, len(balances))
	totalKRW := decimal.Zero
	totalUSD := decimal.Zero
	var unpriced []string

	for _, raw := range balances {
		asset := model.AssetBalance{
			Symbol:  raw.Symbol,
			Balance: raw.Balance,
		}

		quote, err := v.priceOracle.GetQuote(ctx, raw.Symbol)
		if err != nil {
			if errors.Is(err, oracle.ErrPriceUnavailable) {
				// 未知资产：估值记为0并标记，汇总继续
				v.logger.Warn("资产价格不可用，估值记为0",
					zap.String("symbol", raw.Symbol))
				asset.ValueInKRW = decimal.Zero
				asset.ValueInUSD = decimal.Zero
				asset.PriceMissing = true
				unpriced = append(unpriced, raw.Symbol)
				assets = append(assets, asset)
				continue
			}
			// 行情源本身不可达属于外部服务错误，整体估值失败
			return nil, model.TotalValue{}, err
		}

		asset.ValueInKRW = raw.Balance.Mul(quote.KRW)
		asset.ValueInUSD = raw.Balance.Mul(quote.USD)
		totalKRW = totalKRW.Add(asset.ValueInKRW)
		totalUSD = totalUSD.Add(asset.ValueInUSD)
		assets = append(assets, asset)
	}

	total := model.TotalValue{
		TotalInKRW:      totalKRW,
		TotalInUSD:      totalUSD,
		AssetBreakdown:  assets,
		Incomplete:      len(unpriced) > 0,
		UnpricedSymbols: unpriced,
	}

	return assets, total, nil
}

// CombineTotals 合并多个钱包的估值汇总为金库级汇总
func CombineTotals(totals ...model.TotalValue) model.TotalValue {
	combined := model.TotalValue{
		TotalInKRW: decimal.Zero,
		TotalInUSD: decimal.Zero,
	}

	for _, t := range totals {
		combined.TotalInKRW = combined.TotalInKRW.Add(t.TotalInKRW)
		combined.TotalInUSD = combined.TotalInUSD.Add(t.TotalInUSD)
		combined.AssetBreakdown = append(combined.AssetBreakdown, t.AssetBreakdown...)
		if t.Incomplete {
			combined.Incomplete = true
			combined.UnpricedSymbols = append(combined.UnpricedSymbols, t.UnpricedSymbols...)
		}
	}

	return combined
}
