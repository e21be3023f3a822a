package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/mocks"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/oracle"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/rebalancing"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/vault"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/wallet"
)

// submitFixture 提交链路的测试装置
type submitFixture struct {
	service     *VaultService
	store       *mocks.MockRecordStore
	locker      *mocks.MockSubmitLocker
	events      *mocks.MockEventPublisher
	priceOracle *mocks.MockPriceOracle
	provider    *mocks.MockBalanceProvider
}

func newSubmitFixture(t *testing.T) *submitFixture {
	logger := zaptest.NewLogger(t)

	f := &submitFixture{
		store:       new(mocks.MockRecordStore),
		locker:      new(mocks.MockSubmitLocker),
		events:      new(mocks.MockEventPublisher),
		priceOracle: new(mocks.MockPriceOracle),
		provider:    new(mocks.MockBalanceProvider),
	}

	processor := rebalancing.NewProcessor(logger, f.store, f.locker, f.events)
	f.service = NewVaultService(logger, nil, nil, processor, nil, f.priceOracle, f.provider, nil)
	return f
}

func hotSnapshot(btc decimal.Decimal) *wallet.Snapshot {
	return &wallet.Snapshot{
		Kind:        model.WalletHot,
		Balances:    []vault.RawBalance{{Symbol: "BTC", Balance: btc}},
		Status:      model.WalletStatusNormal,
		HealthScore: 100,
	}
}

func submitRequest(amount decimal.Decimal) *model.RebalancingRequest {
	return &model.RebalancingRequest{
		Type: model.DirectionHotToCold,
		Assets: []model.AssetTransfer{
			{
				Symbol:     "BTC",
				Amount:     amount,
				FromWallet: model.WalletHot,
				ToWallet:   model.WalletCold,
			},
		},
		Reason:   "热钱包超配，例行归集",
		Priority: model.PriorityNormal,
	}
}

func TestVaultService_SubmitRebalancingRequest(t *testing.T) {
	f := newSubmitFixture(t)

	f.provider.On("GetSnapshot", mock.Anything, model.WalletHot).
		Return(hotSnapshot(decimal.NewFromInt(1)), nil)
	f.priceOracle.On("GetQuote", mock.Anything, "BTC").Return(&oracle.PriceQuote{
		Symbol: "BTC",
		KRW:    decimal.NewFromInt(100_000_000),
		USD:    decimal.NewFromInt(77_000),
	}, nil)

	f.store.On("GetIdempotentRecordID", mock.Anything, "key-1").Return("", nil)
	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("HasActiveRecord", mock.Anything).Return(false, nil)
	f.store.On("SaveRecord", mock.Anything, mock.AnythingOfType("*model.RebalancingRecord")).Return(nil)
	f.store.On("BindIdempotencyKey", mock.Anything, "key-1", mock.AnythingOfType("string"), mock.Anything).Return(nil)
	f.events.On("PublishLifecycleEvent", mock.Anything, mock.Anything).Return(nil)

	record, err := f.service.SubmitRebalancingRequest(context.Background(),
		submitRequest(decimal.NewFromFloat(0.5)), "key-1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, record.Status)
	// 0.5 BTC * 100M = 50M KRW估值
	assert.True(t, record.AmountInKRW.Equal(decimal.NewFromInt(50_000_000)),
		"KRW估值应为50M，实际为%s", record.AmountInKRW)
}

func TestVaultService_SubmitRebalancingRequest_InsufficientBalance(t *testing.T) {
	f := newSubmitFixture(t)

	// 源钱包只有0.1 BTC，请求转0.5 BTC
	f.provider.On("GetSnapshot", mock.Anything, model.WalletHot).
		Return(hotSnapshot(decimal.NewFromFloat(0.1)), nil)

	_, err := f.service.SubmitRebalancingRequest(context.Background(),
		submitRequest(decimal.NewFromFloat(0.5)), "key-1")

	var balanceErr *rebalancing.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, "BTC", balanceErr.Symbol)

	// 显式指定资产的请求不允许部分执行：拒绝且不落记录
	f.store.AssertNotCalled(t, "SaveRecord", mock.Anything, mock.Anything)
}

func TestVaultService_SubmitRebalancingRequest_InvalidRequestSkipsBalanceCheck(t *testing.T) {
	f := newSubmitFixture(t)

	req := submitRequest(decimal.NewFromFloat(0.5))
	req.Reason = ""

	_, err := f.service.SubmitRebalancingRequest(context.Background(), req, "key-1")

	var validationErr *rebalancing.ValidationError
	require.ErrorAs(t, err, &validationErr)

	// 结构校验先于余额查询
	f.provider.AssertNotCalled(t, "GetSnapshot", mock.Anything, mock.Anything)
}

func TestVaultService_SubmitRebalancingRequest_UnpricedAssetStillSubmits(t *testing.T) {
	f := newSubmitFixture(t)

	snapshot := &wallet.Snapshot{
		Kind:     model.WalletHot,
		Balances: []vault.RawBalance{{Symbol: "NEWCOIN", Balance: decimal.NewFromInt(1000)}},
	}
	f.provider.On("GetSnapshot", mock.Anything, model.WalletHot).Return(snapshot, nil)
	f.priceOracle.On("GetQuote", mock.Anything, "NEWCOIN").Return(nil, oracle.ErrPriceUnavailable)

	f.store.On("GetIdempotentRecordID", mock.Anything, mock.Anything).Return("", nil)
	f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.locker.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil)
	f.store.On("HasActiveRecord", mock.Anything).Return(false, nil)
	f.store.On("SaveRecord", mock.Anything, mock.AnythingOfType("*model.RebalancingRecord")).Return(nil)
	f.store.On("BindIdempotencyKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishLifecycleEvent", mock.Anything, mock.Anything).Return(nil)

	req := &model.RebalancingRequest{
		Type: model.DirectionHotToCold,
		Assets: []model.AssetTransfer{
			{
				Symbol:     "NEWCOIN",
				Amount:     decimal.NewFromInt(500),
				FromWallet: model.WalletHot,
				ToWallet:   model.WalletCold,
			},
		},
		Reason:   "手工归集新上线资产",
		Priority: model.PriorityNormal,
	}

	// 无法定价的资产不阻断提交，KRW估值记为0
	record, err := f.service.SubmitRebalancingRequest(context.Background(), req, "key-2")
	require.NoError(t, err)
	assert.True(t, record.AmountInKRW.IsZero())
}
