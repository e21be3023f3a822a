package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RebalanceDirection 再平衡转账方向
type RebalanceDirection string

// 转账方向枚举
const (
	DirectionHotToCold RebalanceDirection = "HOT_TO_COLD"
	DirectionColdToHot RebalanceDirection = "COLD_TO_HOT"
	DirectionNone      RebalanceDirection = "NONE" // 偏差为零时无需转账
)

// Valid 校验转账方向是否合法
func (d RebalanceDirection) Valid() bool {
	return d == DirectionHotToCold || d == DirectionColdToHot
}

// Priority 再平衡请求优先级
type Priority string

// 优先级枚举
const (
	PriorityLow       Priority = "LOW"
	PriorityNormal    Priority = "NORMAL"
	PriorityHigh      Priority = "HIGH"
	PriorityEmergency Priority = "EMERGENCY"
)

// Valid 校验优先级是否合法
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// QueueScore 优先级对应的队列权重，数值越大越优先
func (p Priority) QueueScore() float64 {
	switch p {
	case PriorityEmergency:
		return 100
	case PriorityHigh:
		return 75
	case PriorityNormal:
		return 50
	case PriorityLow:
		return 25
	default:
		return 0
	}
}

// RecordStatus 再平衡记录生命周期状态
type RecordStatus string

// 生命周期状态枚举
const (
	StatusPending            RecordStatus = "PENDING"
	StatusApproved           RecordStatus = "APPROVED"
	StatusProcessing         RecordStatus = "PROCESSING"
	StatusSignatureRequired  RecordStatus = "SIGNATURE_REQUIRED"
	StatusCompleted          RecordStatus = "COMPLETED"
	StatusFailed             RecordStatus = "FAILED"
	StatusCancelled          RecordStatus = "CANCELLED"
	StatusPartiallyCompleted RecordStatus = "PARTIALLY_COMPLETED"
)

// Terminal 是否为终态（终态记录不可再变更）
func (s RecordStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusPartiallyCompleted:
		return true
	}
	return false
}

// RebalancingCalculation 再平衡测算结果（派生数据，按需重算，不持久化）
type RebalancingCalculation struct {
	Direction              RebalanceDirection `json:"direction"`
	CurrentHotValue        decimal.Decimal    `json:"current_hot_value"`
	CurrentColdValue       decimal.Decimal    `json:"current_cold_value"`
	CurrentTotalValue      decimal.Decimal    `json:"current_total_value"`
	RequiredTransferAmount decimal.Decimal    `json:"required_transfer_amount"`
	EstimatedFee           decimal.Decimal    `json:"estimated_fee"`
	AfterHotRatio          decimal.Decimal    `json:"after_hot_ratio"`
	AfterColdRatio         decimal.Decimal    `json:"after_cold_ratio"`
	AfterDeviation         decimal.Decimal    `json:"after_deviation"`
	// 源钱包余额不足以完全修正时为true，此时金额已按可用余额截断
	PartialCorrection bool `json:"partial_correction,omitempty"`
}

// AssetTransfer 单个资产的转账明细
type AssetTransfer struct {
	Symbol     string          `json:"symbol"`
	Amount     decimal.Decimal `json:"amount"`
	FromWallet WalletKind      `json:"from_wallet"`
	ToWallet   WalletKind      `json:"to_wallet"`
}

// RebalancingRequest 再平衡请求（处理前必须校验）
type RebalancingRequest struct {
	Type     RebalanceDirection `json:"type"`
	Assets   []AssetTransfer    `json:"assets"`
	Reason   string             `json:"reason"`
	Priority Priority           `json:"priority"`
	Notes    string             `json:"notes,omitempty"`
	// 紧急优先级必须由调用方显式确认，服务端重新校验，不信任UI
	EmergencyAcknowledged bool `json:"emergency_acknowledged,omitempty"`
}

// TransferOutcome 单个资产转账的执行结果
type TransferOutcome struct {
	Symbol      string          `json:"symbol"`
	Amount      decimal.Decimal `json:"amount"`
	Success     bool            `json:"success"`
	TxID        string          `json:"tx_id,omitempty"`
	FailReason  string          `json:"fail_reason,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RebalancingRecord 再平衡记录（持久化的生命周期实体）
type RebalancingRecord struct {
	ID             string             `json:"id"`
	Type           RebalanceDirection `json:"type"`
	Assets         []AssetTransfer    `json:"assets"`
	Amount         decimal.Decimal    `json:"amount"`
	AmountInKRW    decimal.Decimal    `json:"amount_in_krw"`
	Reason         string             `json:"reason"`
	Priority       Priority           `json:"priority"`
	Notes          string             `json:"notes,omitempty"`
	Status         RecordStatus       `json:"status"`
	FailureReason  string             `json:"failure_reason,omitempty"`
	Outcomes       []TransferOutcome  `json:"outcomes,omitempty"` // 每个资产单独记录结果
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	ActualDuration *time.Duration     `json:"actual_duration,omitempty"`
}

// LifecycleEvent 生命周期事件（通过事件队列对外发布，不绑定具体传输方式）
type LifecycleEvent struct {
	EventID       string       `json:"event_id"`
	RebalancingID string       `json:"rebalancing_id"`
	FromStatus    RecordStatus `json:"from_status,omitempty"`
	ToStatus      RecordStatus `json:"to_status"`
	Reason        string       `json:"reason,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// HistoryFilter 再平衡历史查询条件
type HistoryFilter struct {
	Statuses []RecordStatus       `json:"statuses,omitempty"`
	Types    []RebalanceDirection `json:"types,omitempty"`
	Search   string               `json:"search,omitempty"`
	From     *time.Time           `json:"from,omitempty"`
	To       *time.Time           `json:"to,omitempty"`
}

// Match 判断记录是否满足过滤条件
func (f *HistoryFilter) Match(record *RebalancingRecord) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, record.Status) {
		return false
	}
	if len(f.Types) > 0 && !containsDirection(f.Types, record.Type) {
		return false
	}
	if f.Search != "" && !matchSearch(record, f.Search) {
		return false
	}
	if f.From != nil && record.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && record.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func containsStatus(list []RecordStatus, s RecordStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsDirection(list []RebalanceDirection, d RebalanceDirection) bool {
	for _, item := range list {
		if item == d {
			return true
		}
	}
	return false
}

// matchSearch 在ID、原因、备注和资产符号中做不区分大小写的匹配
func matchSearch(record *RebalancingRecord, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(record.ID), needle) ||
		strings.Contains(strings.ToLower(record.Reason), needle) ||
		strings.Contains(strings.ToLower(record.Notes), needle) {
		return true
	}
	for _, asset := range record.Assets {
		if strings.Contains(strings.ToLower(asset.Symbol), needle) {
			return true
		}
	}
	return false
}
