package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/config"
)

// TickerSource 单币种行情源
type TickerSource interface {
	GetSourceName() string
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// CompositeOracle 组合KRW/USD两侧行情源的价格预言机
// 白名单之外的资产直接按价格不可用处理；临时性网络错误按重试预算退避重试
type CompositeOracle struct {
	krwSource      TickerSource // 可为nil
	usdSource      TickerSource // 可为nil
	logger         *zap.Logger
	allowedSymbols map[string]bool
	maxRetries     int
	retryBackoff   time.Duration
}

// NewCompositeOracle 创建组合价格预言机
func NewCompositeOracle(
	krwSource TickerSource,
	usdSource TickerSource,
	allowedSymbols []string,
	cfg config.OracleConfig,
	logger *zap.Logger,
) *CompositeOracle {
	allowed := make(map[string]bool, len(allowedSymbols))
	for _, symbol := range allowedSymbols {
		allowed[symbol] = true
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := time.Duration(cfg.RetryBackoffMsec) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &CompositeOracle{
		krwSource:      krwSource,
		usdSource:      usdSource,
		logger:         logger.With(zap.String("component", "price_oracle")),
		allowedSymbols: allowed,
		maxRetries:     maxRetries,
		retryBackoff:   backoff,
	}
}

// GetOracleName 获取行情源名称
func (o *CompositeOracle) GetOracleName() string {
	return "Composite"
}

// GetQuote 获取资产的KRW/USD报价
// 单侧行情源缺失时通过USDT汇率换算补齐另一侧
func (o *CompositeOracle) GetQuote(ctx context.Context, symbol string) (*PriceQuote, error) {
	if len(o.allowedSymbols) > 0 && !o.allowedSymbols[symbol] {
		return nil, ErrPriceUnavailable
	}

	quote := &PriceQuote{
		Symbol:    symbol,
		Timestamp: time.Now(),
	}

	var krw, usd decimal.Decimal
	var krwErr, usdErr error

	if o.krwSource != nil {
		krw, krwErr = o.fetchWithRetry(ctx, o.krwSource, symbol)
	}
	if o.usdSource != nil {
		usd, usdErr = o.fetchWithRetry(ctx, o.usdSource, symbol)
	}

	// 两侧都拿不到价格才视为不可用
	if (o.krwSource == nil || krwErr != nil) && (o.usdSource == nil || usdErr != nil) {
		if usdErr != nil {
			return nil, usdErr
		}
		if krwErr != nil {
			return nil, krwErr
		}
		return nil, ErrPriceUnavailable
	}

	// KRW侧缺失：用Upbit的USDT/KRW汇率换算
	if o.krwSource != nil && krwErr == nil {
		quote.KRW = krw
	} else {
		rate, err := o.usdKRWRate(ctx)
		if err != nil {
			return nil, err
		}
		quote.KRW = usd.Mul(rate)
	}

	// USD侧缺失：用KRW价格除以USDT/KRW汇率换算
	if o.usdSource != nil && usdErr == nil {
		quote.USD = usd
	} else {
		rate, err := o.usdKRWRate(ctx)
		if err != nil {
			return nil, err
		}
		if rate.IsZero() {
			return nil, ErrPriceUnavailable
		}
		quote.USD = krw.Div(rate)
	}

	return quote, nil
}

// usdKRWRate 以USDT/KRW市场价近似美元韩元汇率
func (o *CompositeOracle) usdKRWRate(ctx context.Context) (decimal.Decimal, error) {
	if o.krwSource == nil {
		return decimal.Zero, ErrPriceUnavailable
	}
	return o.fetchWithRetry(ctx, o.krwSource, "USDT")
}

// fetchWithRetry 带退避重试的价格拉取
// 重试预算耗尽后包装为外部服务错误向运营侧暴露
func (o *CompositeOracle) fetchWithRetry(ctx context.Context, source TickerSource, symbol string) (decimal.Decimal, error) {
	var lastErr error

	for attempt := 0; attempt < o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(o.retryBackoff * time.Duration(attempt)):
			}
		}

		price, err := source.GetLastPrice(ctx, symbol)
		if err == nil {
			return price, nil
		}
		lastErr = err

		o.logger.Warn("拉取价格失败，准备重试",
			zap.String("source", source.GetSourceName()),
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return decimal.Zero, &ExternalServiceError{
		Service: source.GetSourceName(),
		Err:     lastErr,
	}
}
