package rebalancing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    model.RecordStatus
		to      model.RecordStatus
		allowed bool
	}{
		{"授权", model.StatusPending, model.StatusApproved, true},
		{"待审批时取消", model.StatusPending, model.StatusCancelled, true},
		{"跳过审批直接广播", model.StatusPending, model.StatusProcessing, false},
		{"广播转账", model.StatusApproved, model.StatusProcessing, true},
		{"审批后要求补签", model.StatusApproved, model.StatusSignatureRequired, true},
		{"审批后取消", model.StatusApproved, model.StatusCancelled, true},
		{"确认完成", model.StatusProcessing, model.StatusCompleted, true},
		{"执行失败", model.StatusProcessing, model.StatusFailed, true},
		{"部分完成", model.StatusProcessing, model.StatusPartiallyCompleted, true},
		{"执行中要求补签", model.StatusProcessing, model.StatusSignatureRequired, true},
		{"链上交易已广播后不可取消", model.StatusProcessing, model.StatusCancelled, false},
		{"补签完成后恢复执行", model.StatusSignatureRequired, model.StatusProcessing, true},
		{"等待补签时取消", model.StatusSignatureRequired, model.StatusCancelled, true},
		{"等待补签时直接完成", model.StatusSignatureRequired, model.StatusCompleted, false},
		{"终态不可变更-已完成", model.StatusCompleted, model.StatusCancelled, false},
		{"终态不可变更-已失败", model.StatusFailed, model.StatusProcessing, false},
		{"终态不可变更-已取消", model.StatusCancelled, model.StatusApproved, false},
		{"终态不可变更-部分完成", model.StatusPartiallyCompleted, model.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckTransition(t *testing.T) {
	record := &model.RebalancingRecord{
		ID:     "rec-001",
		Status: model.StatusCompleted,
	}

	// 非法转换是显式错误而不是静默空操作
	err := CheckTransition(record, model.StatusCancelled)
	assert.Error(t, err)

	var transitionErr *InvalidStateTransitionError
	assert.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "rec-001", transitionErr.RecordID)
	assert.Equal(t, model.StatusCompleted, transitionErr.From)
	assert.Equal(t, model.StatusCancelled, transitionErr.To)
}

func TestCancellable(t *testing.T) {
	// 尚未广播链上交易的状态允许取消
	assert.True(t, Cancellable(model.StatusPending))
	assert.True(t, Cancellable(model.StatusApproved))
	assert.True(t, Cancellable(model.StatusSignatureRequired))

	// 广播之后只能跟踪到终态
	assert.False(t, Cancellable(model.StatusProcessing))
	assert.False(t, Cancellable(model.StatusCompleted))
	assert.False(t, Cancellable(model.StatusFailed))
}
