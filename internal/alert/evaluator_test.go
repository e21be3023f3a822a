package alert

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/mocks"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// captureAlert 让mock记录最近一次保存的告警
func captureAlert(store *mocks.MockAlertStore, saved **model.VaultAlert) {
	store.On("SaveAlert", mock.Anything, mock.AnythingOfType("*model.VaultAlert")).
		Run(func(args mock.Arguments) {
			*saved = args.Get(1).(*model.VaultAlert)
		}).Return(nil)
}

func TestEvaluator_EvaluateBalance_Critical(t *testing.T) {
	store := new(mocks.MockAlertStore)
	notifier := new(mocks.MockNotifier)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, notifier)

	var saved *model.VaultAlert
	captureAlert(store, &saved)
	notifier.On("PublishAlertNotification", mock.Anything, mock.AnythingOfType("*model.VaultAlert")).Return(nil)

	status := model.BalanceStatus{
		Deviation:       decimal.NewFromInt(15),
		DeviationStatus: model.DeviationCritical,
	}
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), status))

	require.NotNil(t, saved)
	assert.Equal(t, model.AlertCritical, saved.Severity)
	assert.Equal(t, "initiate rebalancing", saved.Metadata.RecommendedAction)
	assert.Equal(t, 10, saved.Metadata.UrgencyLevel)
	assert.False(t, saved.AutoResolve)

	notifier.AssertExpectations(t)
}

func TestEvaluator_EvaluateBalance_UrgencyFollowsDeviation(t *testing.T) {
	store := new(mocks.MockAlertStore)
	notifier := new(mocks.MockNotifier)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, notifier)

	var saved *model.VaultAlert
	captureAlert(store, &saved)
	notifier.On("PublishAlertNotification", mock.Anything, mock.Anything).Return(nil)

	// 偏差25：紧急程度按幅度取整但封顶10
	status := model.BalanceStatus{
		Deviation:       decimal.NewFromInt(-25),
		DeviationStatus: model.DeviationCritical,
	}
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), status))

	require.NotNil(t, saved)
	assert.Equal(t, 10, saved.Metadata.UrgencyLevel)
}

func TestEvaluator_EvaluateBalance_WarningAutoResolves(t *testing.T) {
	store := new(mocks.MockAlertStore)
	notifier := new(mocks.MockNotifier)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, notifier)

	var saved *model.VaultAlert
	captureAlert(store, &saved)
	notifier.On("PublishAlertNotification", mock.Anything, mock.Anything).Return(nil)

	warning := model.BalanceStatus{
		Deviation:       decimal.NewFromInt(8),
		DeviationStatus: model.DeviationWarning,
	}
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), warning))

	require.NotNil(t, saved)
	assert.Equal(t, model.AlertWarning, saved.Severity)
	assert.True(t, saved.AutoResolve)
	warningAlert := saved

	// 比例回归最优：此前的预警告警被自动消解
	store.On("GetAlert", mock.Anything, warningAlert.ID).Return(warningAlert, nil)

	recovered := model.BalanceStatus{
		Deviation:       decimal.NewFromInt(1),
		DeviationStatus: model.DeviationOptimal,
	}
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), recovered))

	assert.True(t, warningAlert.IsResolved)
	require.NotNil(t, warningAlert.ResolvedAt)
}

func TestEvaluator_EvaluateBalance_NoDuplicateOnSameState(t *testing.T) {
	store := new(mocks.MockAlertStore)
	notifier := new(mocks.MockNotifier)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, notifier)

	store.On("SaveAlert", mock.Anything, mock.AnythingOfType("*model.VaultAlert")).Return(nil).Once()
	notifier.On("PublishAlertNotification", mock.Anything, mock.Anything).Return(nil).Once()

	status := model.BalanceStatus{
		Deviation:       decimal.NewFromInt(15),
		DeviationStatus: model.DeviationCritical,
	}

	// 同一分级连续出现只在跨越阈值时产生一条告警
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), status))
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), status))
	require.NoError(t, evaluator.EvaluateBalance(context.Background(), status))

	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestEvaluator_EvaluateWalletHealth(t *testing.T) {
	tests := []struct {
		name             string
		kind             model.WalletKind
		status           model.WalletStatus
		expectedSeverity model.AlertSeverity
	}{
		{
			name:             "冷钱包故障-最高级别",
			kind:             model.WalletCold,
			status:           model.WalletStatusCritical,
			expectedSeverity: model.AlertCritical,
		},
		{
			name:             "热钱包余额过低-错误级别",
			kind:             model.WalletHot,
			status:           model.WalletStatusLow,
			expectedSeverity: model.AlertError,
		},
		{
			name:             "热钱包余额过高-错误级别",
			kind:             model.WalletHot,
			status:           model.WalletStatusHigh,
			expectedSeverity: model.AlertError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockAlertStore)
			notifier := new(mocks.MockNotifier)
			evaluator := NewEvaluator(zaptest.NewLogger(t), store, notifier)

			var saved *model.VaultAlert
			captureAlert(store, &saved)
			notifier.On("PublishAlertNotification", mock.Anything, mock.Anything).Return(nil)

			wallet := model.WalletInfo{
				WalletKind:  tt.kind,
				Status:      tt.status,
				HealthScore: 30,
			}
			require.NoError(t, evaluator.EvaluateWalletHealth(context.Background(), wallet))

			require.NotNil(t, saved)
			assert.Equal(t, tt.expectedSeverity, saved.Severity)
		})
	}
}

func TestEvaluator_EvaluateWalletHealth_NormalNoAlert(t *testing.T) {
	store := new(mocks.MockAlertStore)
	notifier := new(mocks.MockNotifier)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, notifier)

	wallet := model.WalletInfo{
		WalletKind:  model.WalletHot,
		Status:      model.WalletStatusNormal,
		HealthScore: 100,
	}
	require.NoError(t, evaluator.EvaluateWalletHealth(context.Background(), wallet))

	store.AssertNotCalled(t, "SaveAlert", mock.Anything, mock.Anything)
}

func TestEvaluator_Resolve(t *testing.T) {
	store := new(mocks.MockAlertStore)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, nil)

	active := &model.VaultAlert{
		ID:        "alert-1",
		Severity:  model.AlertWarning,
		CreatedAt: time.Now(),
	}
	store.On("GetAlert", mock.Anything, "alert-1").Return(active, nil)
	store.On("SaveAlert", mock.Anything, mock.AnythingOfType("*model.VaultAlert")).Return(nil)

	require.NoError(t, evaluator.Resolve(context.Background(), "alert-1"))
	assert.True(t, active.IsResolved)
	require.NotNil(t, active.ResolvedAt)
}

func TestEvaluator_Resolve_Idempotent(t *testing.T) {
	store := new(mocks.MockAlertStore)
	evaluator := NewEvaluator(zaptest.NewLogger(t), store, nil)

	resolvedAt := time.Now().Add(-time.Hour)
	resolved := &model.VaultAlert{
		ID:         "alert-1",
		IsResolved: true,
		ResolvedAt: &resolvedAt,
	}
	store.On("GetAlert", mock.Anything, "alert-1").Return(resolved, nil)

	// 重复消解是空操作而不是错误，消解时间不被覆盖
	require.NoError(t, evaluator.Resolve(context.Background(), "alert-1"))
	assert.Equal(t, resolvedAt, *resolved.ResolvedAt)

	store.AssertNotCalled(t, "SaveAlert", mock.Anything, mock.Anything)
}
