package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/oracle"
)

// MockPriceOracle 价格预言机接口的模拟实现
type MockPriceOracle struct {
	mock.Mock
}

// GetOracleName 获取行情源名称的模拟实现
func (m *MockPriceOracle) GetOracleName() string {
	args := m.Called()
	return args.String(0)
}

// GetQuote 获取报价的模拟实现
func (m *MockPriceOracle) GetQuote(ctx context.Context, symbol string) (*oracle.PriceQuote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.PriceQuote), args.Error(1)
}

// MockTickerSource 单币种行情源的模拟实现
type MockTickerSource struct {
	mock.Mock
}

// GetSourceName 获取行情源名称的模拟实现
func (m *MockTickerSource) GetSourceName() string {
	args := m.Called()
	return args.String(0)
}

// GetLastPrice 获取最新价格的模拟实现
func (m *MockTickerSource) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
