package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable 行情源无法解析该资产的价格
// 估值聚合时作为警告附加在对应资产上，不导致整体估值失败
var ErrPriceUnavailable = errors.New("价格不可用")

// PriceQuote 单个资产的双币种报价
type PriceQuote struct {
	Symbol    string          `json:"symbol"`
	KRW       decimal.Decimal `json:"krw"`
	USD       decimal.Decimal `json:"usd"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceOracle 价格预言机接口
type PriceOracle interface {
	// GetOracleName 获取行情源名称
	GetOracleName() string

	// GetQuote 获取指定资产的KRW/USD报价
	// 无法定价时返回ErrPriceUnavailable
	GetQuote(ctx context.Context, symbol string) (*PriceQuote, error)
}

// ExternalServiceError 外部服务调用失败（重试预算耗尽后向运营侧暴露）
type ExternalServiceError struct {
	Service string
	Err     error
}

// Error 实现error接口
func (e *ExternalServiceError) Error() string {
	return "外部服务调用失败: " + e.Service + ": " + e.Err.Error()
}

// Unwrap 支持errors.Is/As链式判断
func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
