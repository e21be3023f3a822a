package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// ErrNotFound 目标记录不存在
var ErrNotFound = errors.New("记录不存在")

// Storage 金库数据存储接口
type Storage interface {
	// 生命周期管理
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error
	Health(ctx context.Context) error

	// 再平衡记录
	SaveRecord(ctx context.Context, record *model.RebalancingRecord) error
	GetRecord(ctx context.Context, id string) (*model.RebalancingRecord, error)
	ListRecords(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error)
	HasActiveRecord(ctx context.Context) (bool, error)

	// 幂等键
	GetIdempotentRecordID(ctx context.Context, key string) (string, error)
	BindIdempotencyKey(ctx context.Context, key, recordID string, ttl time.Duration) error

	// 告警
	SaveAlert(ctx context.Context, alert *model.VaultAlert) error
	GetAlert(ctx context.Context, id string) (*model.VaultAlert, error)
	ListAlerts(ctx context.Context, activeOnly bool) ([]*model.VaultAlert, error)

	// 金库状态快照
	SaveVaultStatus(ctx context.Context, status *model.VaultStatus) error
	GetLatestVaultStatus(ctx context.Context) (*model.VaultStatus, error)
}
