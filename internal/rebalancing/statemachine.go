package rebalancing

import (
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// 生命周期状态机
// PENDING -(authorize)-> APPROVED -(broadcast)-> PROCESSING -(confirm)-> COMPLETED
// 替代路径：
//   PROCESSING -> FAILED（广播/确认失败，记录失败原因）
//   PENDING/APPROVED/SIGNATURE_REQUIRED -> CANCELLED（尚未广播链上交易）
//   APPROVED/PROCESSING -> SIGNATURE_REQUIRED -> PROCESSING（冷钱包多签补签）
//   PROCESSING -> PARTIALLY_COMPLETED（多资产请求部分成功）
// 终态记录不可再变更
var allowedTransitions = map[model.RecordStatus][]model.RecordStatus{
	model.StatusPending: {
		model.StatusApproved,
		model.StatusCancelled,
	},
	model.StatusApproved: {
		model.StatusProcessing,
		model.StatusSignatureRequired,
		model.StatusCancelled,
	},
	model.StatusProcessing: {
		model.StatusCompleted,
		model.StatusFailed,
		model.StatusPartiallyCompleted,
		model.StatusSignatureRequired,
	},
	model.StatusSignatureRequired: {
		model.StatusProcessing,
		model.StatusCancelled,
	},
}

// CanTransition 判断是否允许从from转换到to
func CanTransition(from, to model.RecordStatus) bool {
	if from.Terminal() {
		return false
	}
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition 校验状态转换，非法时返回InvalidStateTransitionError
// 非法转换是显式错误而不是静默空操作
func CheckTransition(record *model.RebalancingRecord, to model.RecordStatus) error {
	if !CanTransition(record.Status, to) {
		return &InvalidStateTransitionError{
			RecordID: record.ID,
			From:     record.Status,
			To:       to,
		}
	}
	return nil
}

// Cancellable 判断当前状态是否允许取消
// PROCESSING已提交链上交易，不可撤回，只能跟踪到终态
func Cancellable(status model.RecordStatus) bool {
	return CanTransition(status, model.StatusCancelled)
}
