package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// MockAlertStore 告警存储的模拟实现
type MockAlertStore struct {
	mock.Mock
}

// SaveAlert 保存告警的模拟实现
func (m *MockAlertStore) SaveAlert(ctx context.Context, alert *model.VaultAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// GetAlert 查询告警的模拟实现
func (m *MockAlertStore) GetAlert(ctx context.Context, id string) (*model.VaultAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VaultAlert), args.Error(1)
}

// ListAlerts 查询告警列表的模拟实现
func (m *MockAlertStore) ListAlerts(ctx context.Context, activeOnly bool) ([]*model.VaultAlert, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VaultAlert), args.Error(1)
}

// MockNotifier 告警通知发布的模拟实现
type MockNotifier struct {
	mock.Mock
}

// PublishAlertNotification 发布告警通知的模拟实现
func (m *MockNotifier) PublishAlertNotification(ctx context.Context, alert *model.VaultAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}
