package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletKind 钱包类型
type WalletKind string

// 支持的钱包类型
const (
	WalletHot  WalletKind = "HOT"
	WalletCold WalletKind = "COLD"
)

// Valid 校验钱包类型是否合法
func (k WalletKind) Valid() bool {
	return k == WalletHot || k == WalletCold
}

// WalletStatus 钱包运行状态
type WalletStatus string

// 钱包运行状态枚举
const (
	WalletStatusNormal      WalletStatus = "NORMAL"
	WalletStatusLow         WalletStatus = "LOW"
	WalletStatusHigh        WalletStatus = "HIGH"
	WalletStatusCritical    WalletStatus = "CRITICAL"
	WalletStatusMaintenance WalletStatus = "MAINTENANCE"
)

// Valid 校验钱包状态是否合法
func (s WalletStatus) Valid() bool {
	switch s {
	case WalletStatusNormal, WalletStatusLow, WalletStatusHigh,
		WalletStatusCritical, WalletStatusMaintenance:
		return true
	}
	return false
}

// SecurityLevel 冷钱包安全等级
type SecurityLevel string

// 安全等级枚举
const (
	SecurityBasic    SecurityLevel = "BASIC"
	SecurityStandard SecurityLevel = "STANDARD"
	SecurityHigh     SecurityLevel = "HIGH"
	SecurityMaximum  SecurityLevel = "MAXIMUM"
)

// DeviationStatus 热冷比例偏差分级
type DeviationStatus string

// 偏差分级枚举
const (
	DeviationOptimal    DeviationStatus = "OPTIMAL"
	DeviationAcceptable DeviationStatus = "ACCEPTABLE"
	DeviationWarning    DeviationStatus = "WARNING"
	DeviationCritical   DeviationStatus = "CRITICAL"
)

// AssetBalance 单个资产在某个钱包内的余额快照
type AssetBalance struct {
	Symbol     string          `json:"symbol"`
	Balance    decimal.Decimal `json:"balance"`
	ValueInKRW decimal.Decimal `json:"value_in_krw"`
	ValueInUSD decimal.Decimal `json:"value_in_usd"`
	// 价格缺失时估值记为0，并通过该标记向下游透传
	PriceMissing bool `json:"price_missing,omitempty"`
}

// TotalValue 估值汇总（派生数据，不单独持久化）
type TotalValue struct {
	TotalInKRW     decimal.Decimal `json:"total_in_krw"`
	TotalInUSD     decimal.Decimal `json:"total_in_usd"`
	AssetBreakdown []AssetBalance  `json:"asset_breakdown"`
	// 存在无法定价的资产时为true，表示汇总结果不完整
	Incomplete      bool     `json:"incomplete,omitempty"`
	UnpricedSymbols []string `json:"unpriced_symbols,omitempty"`
}

// WalletInfo 钱包信息快照（整体替换，不做原地修改）
type WalletInfo struct {
	WalletKind      WalletKind      `json:"wallet_kind"`
	Assets          []AssetBalance  `json:"assets"`
	TotalValue      TotalValue      `json:"total_value"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
	Status          WalletStatus    `json:"status"`
	SecurityLevel   SecurityLevel   `json:"security_level,omitempty"` // 仅冷钱包
	HealthScore     int             `json:"health_score"`             // 0-100
}

// BalanceStatus 热冷比例与偏差分级结果
type BalanceStatus struct {
	HotRatio         decimal.Decimal `json:"hot_ratio"`
	ColdRatio        decimal.Decimal `json:"cold_ratio"`
	TargetHotRatio   decimal.Decimal `json:"target_hot_ratio"`
	TargetColdRatio  decimal.Decimal `json:"target_cold_ratio"`
	Deviation        decimal.Decimal `json:"deviation"` // 带符号，正值表示热钱包超配
	DeviationStatus  DeviationStatus `json:"deviation_status"`
	NeedsRebalancing bool            `json:"needs_rebalancing"`
}

// VaultPerformance 金库运行指标
type VaultPerformance struct {
	Uptime      decimal.Decimal `json:"uptime"`       // 百分比
	SuccessRate decimal.Decimal `json:"success_rate"` // 百分比
}

// VaultStatus 金库聚合状态（每个刷新周期整体重算）
type VaultStatus struct {
	HotWallet     WalletInfo       `json:"hot_wallet"`
	ColdWallet    WalletInfo       `json:"cold_wallet"`
	TotalValue    TotalValue       `json:"total_value"`
	BalanceStatus BalanceStatus    `json:"balance_status"`
	Performance   VaultPerformance `json:"performance"`
	Timestamp     time.Time        `json:"timestamp"`
}

// AlertSeverity 告警级别
type AlertSeverity string

// 告警级别枚举
const (
	AlertInfo     AlertSeverity = "INFO"
	AlertWarning  AlertSeverity = "WARNING"
	AlertError    AlertSeverity = "ERROR"
	AlertCritical AlertSeverity = "CRITICAL"
)

// AlertMetadata 告警附加信息
type AlertMetadata struct {
	RecommendedAction string `json:"recommended_action,omitempty"`
	UrgencyLevel      int    `json:"urgency_level,omitempty"` // 1-10
}

// VaultAlert 金库告警（只追加，不删除，保留审计记录）
type VaultAlert struct {
	ID          string        `json:"id"`
	Severity    AlertSeverity `json:"severity"`
	Title       string        `json:"title"`
	Message     string        `json:"message"`
	Metadata    AlertMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"created_at"`
	IsResolved  bool          `json:"is_resolved"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	AutoResolve bool          `json:"auto_resolve"`
}
