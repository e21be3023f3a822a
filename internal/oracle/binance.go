package oracle

import (
	"context"
	"fmt"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceSource 币安行情源（USD侧报价，以USDT市场近似）
type BinanceSource struct {
	exchange *ccxt.Binance
	logger   *zap.Logger
}

// NewBinanceSource 创建币安行情源
func NewBinanceSource(apiKey, apiSecret string, logger *zap.Logger) *BinanceSource {
	// 创建CCXT的Binance实例
	binanceInstance := ccxt.NewBinance(map[string]interface{}{
		"apiKey":          apiKey,
		"secret":          apiSecret,
		"enableRateLimit": true,
	})

	// 加载市场信息
	go func() {
		<-binanceInstance.LoadMarkets()
		logger.Info("Binance市场数据加载完成")
	}()

	return &BinanceSource{
		exchange: binanceInstance,
		logger:   logger,
	}
}

// GetSourceName 获取行情源名称
func (b *BinanceSource) GetSourceName() string {
	return "Binance"
}

// GetLastPrice 获取指定资产的USD最新价
// USDT本身按1美元计
func (b *BinanceSource) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "USDT" || symbol == "USDC" {
		return decimal.NewFromInt(1), nil
	}

	market := symbol + "/USDT"
	ticker, err := b.exchange.FetchTicker(market)
	if err != nil {
		b.logger.Error("获取币安价格失败",
			zap.Error(err),
			zap.String("symbol", symbol))
		return decimal.Zero, fmt.Errorf("获取币安价格失败: %w", err)
	}

	lastPrice, ok := (*ticker)["last"].(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("价格数据格式错误")
	}

	return decimal.NewFromFloat(lastPrice), nil
}
