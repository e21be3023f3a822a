package oracle

import (
	"context"
	"fmt"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UpbitSource Upbit行情源（KRW侧报价）
type UpbitSource struct {
	exchange *ccxt.Upbit
	logger   *zap.Logger
}

// NewUpbitSource 创建Upbit行情源
func NewUpbitSource(apiKey, apiSecret string, logger *zap.Logger) *UpbitSource {
	upbitInstance := ccxt.NewUpbit(map[string]interface{}{
		"apiKey":          apiKey,
		"secret":          apiSecret,
		"enableRateLimit": true,
	})

	// 加载市场信息
	go func() {
		<-upbitInstance.LoadMarkets()
		logger.Info("Upbit市场数据加载完成")
	}()

	return &UpbitSource{
		exchange: upbitInstance,
		logger:   logger,
	}
}

// GetSourceName 获取行情源名称
func (u *UpbitSource) GetSourceName() string {
	return "Upbit"
}

// GetLastPrice 获取指定资产的KRW最新价
func (u *UpbitSource) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	market := symbol + "/KRW"
	ticker, err := u.exchange.FetchTicker(market)
	if err != nil {
		u.logger.Error("获取Upbit价格失败",
			zap.Error(err),
			zap.String("symbol", symbol))
		return decimal.Zero, fmt.Errorf("获取Upbit价格失败: %w", err)
	}

	lastPrice, ok := (*ticker)["last"].(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("价格数据格式错误")
	}

	return decimal.NewFromFloat(lastPrice), nil
}
