package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/wallet"
)

// MockBalanceProvider 钱包余额数据源的模拟实现
type MockBalanceProvider struct {
	mock.Mock
}

// GetSnapshot 读取钱包快照的模拟实现
func (m *MockBalanceProvider) GetSnapshot(ctx context.Context, kind model.WalletKind) (*wallet.Snapshot, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Snapshot), args.Error(1)
}

// MockFeeEstimator 手续费估算器的模拟实现
type MockFeeEstimator struct {
	mock.Mock
}

// EstimateTransferFee 估算手续费的模拟实现
func (m *MockFeeEstimator) EstimateTransferFee(ctx context.Context, network string, amountKRW decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, network, amountKRW)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
