package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// MockRecordStore 再平衡记录存储的模拟实现
type MockRecordStore struct {
	mock.Mock
}

// SaveRecord 保存记录的模拟实现
func (m *MockRecordStore) SaveRecord(ctx context.Context, record *model.RebalancingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// GetRecord 查询记录的模拟实现
func (m *MockRecordStore) GetRecord(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RebalancingRecord), args.Error(1)
}

// ListRecords 查询记录列表的模拟实现
func (m *MockRecordStore) ListRecords(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RebalancingRecord), args.Error(1)
}

// HasActiveRecord 在途记录检查的模拟实现
func (m *MockRecordStore) HasActiveRecord(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// GetIdempotentRecordID 幂等键查询的模拟实现
func (m *MockRecordStore) GetIdempotentRecordID(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// BindIdempotencyKey 幂等键绑定的模拟实现
func (m *MockRecordStore) BindIdempotencyKey(ctx context.Context, key, recordID string, ttl time.Duration) error {
	args := m.Called(ctx, key, recordID, ttl)
	return args.Error(0)
}

// MockSubmitLocker 分布式锁的模拟实现
type MockSubmitLocker struct {
	mock.Mock
}

// AcquireLock 获取锁的模拟实现
func (m *MockSubmitLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

// ReleaseLock 释放锁的模拟实现
func (m *MockSubmitLocker) ReleaseLock(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockEventPublisher 生命周期事件发布的模拟实现
type MockEventPublisher struct {
	mock.Mock
}

// PublishLifecycleEvent 发布事件的模拟实现
func (m *MockEventPublisher) PublishLifecycleEvent(ctx context.Context, event *model.LifecycleEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
