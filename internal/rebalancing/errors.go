package rebalancing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// ErrRebalancingInFlight 同一钱包对已存在未完结的再平衡记录
// 每个钱包对同一时间最多允许一笔在途再平衡
var ErrRebalancingInFlight = errors.New("该钱包对已有在途的再平衡请求")

// ValidationError 请求校验失败（调用方可修正后重试）
// 校验在任何状态变更之前完成，校验失败不会产生记录
type ValidationError struct {
	Field   string
	Message string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("请求校验失败: 字段%s: %s", e.Field, e.Message)
}

// InvalidStateTransitionError 当前状态不允许的生命周期转换
type InvalidStateTransitionError struct {
	RecordID string
	From     model.RecordStatus
	To       model.RecordStatus
}

// Error 实现error接口
func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("非法状态转换: 记录%s不允许从%s转换到%s", e.RecordID, e.From, e.To)
}

// InsufficientBalanceError 截断后仍超出可用余额且策略不允许部分执行
type InsufficientBalanceError struct {
	Symbol    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error 实现error接口
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("余额不足: %s请求%s，可用%s",
		e.Symbol, e.Requested.String(), e.Available.String())
}
