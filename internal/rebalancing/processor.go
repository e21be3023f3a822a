package rebalancing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

const (
	// 提交阶段分布式锁的持有时间
	submitLockTTL = 10 * time.Second

	// 幂等键的保留时间，覆盖UI重试窗口
	idempotencyKeyTTL = 24 * time.Hour
)

// RecordStore 再平衡记录存储接口
type RecordStore interface {
	SaveRecord(ctx context.Context, record *model.RebalancingRecord) error
	GetRecord(ctx context.Context, id string) (*model.RebalancingRecord, error)
	ListRecords(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error)
	// HasActiveRecord 判断钱包对是否存在未完结记录
	HasActiveRecord(ctx context.Context) (bool, error)
	// GetIdempotentRecordID 查询幂等键绑定的记录ID，未绑定时返回空串
	GetIdempotentRecordID(ctx context.Context, key string) (string, error)
	// BindIdempotencyKey 将幂等键绑定到记录（SETNX语义）
	BindIdempotencyKey(ctx context.Context, key, recordID string, ttl time.Duration) error
}

// SubmitLocker 提交阶段的分布式锁
type SubmitLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// EventPublisher 生命周期事件发布接口
// 引擎只发布类型化事件，不绑定具体传输方式
type EventPublisher interface {
	PublishLifecycleEvent(ctx context.Context, event *model.LifecycleEvent) error
}

// Processor 再平衡请求处理器
// 唯一有状态的组件：提交按钱包对串行化，生命周期转换持久化并发布事件
type Processor struct {
	logger *zap.Logger
	store  RecordStore
	locker SubmitLocker
	events EventPublisher

	// 进程内按钱包对串行化提交；分布式锁负责跨实例互斥
	vaultLocks sync.Map // key: 钱包对 → *sync.Mutex
}

// NewProcessor 创建再平衡请求处理器
func NewProcessor(logger *zap.Logger, store RecordStore, locker SubmitLocker, events EventPublisher) *Processor {
	return &Processor{
		logger: logger.With(zap.String("component", "rebalancing_processor")),
		store:  store,
		locker: locker,
		events: events,
	}
}

// 钱包对锁键，两个转账方向共用同一钱包对
// 锁的粒度是钱包对而不是全局，支持多资产金库独立再平衡
const vaultPairLockKey = "rebalancing:submit:HOT-COLD"

// ValidateRequest 校验再平衡请求
// 校验失败时不产生任何状态变更
func ValidateRequest(req *model.RebalancingRequest) error {
	if !req.Type.Valid() {
		return &ValidationError{Field: "type", Message: "转账方向不合法"}
	}

	if req.Reason == "" {
		return &ValidationError{Field: "reason", Message: "必须填写再平衡原因"}
	}

	if len(req.Assets) == 0 {
		return &ValidationError{Field: "assets", Message: "资产列表不能为空"}
	}

	for i, asset := range req.Assets {
		if asset.Symbol == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("assets[%d].symbol", i),
				Message: "资产符号不能为空",
			}
		}
		if !asset.Amount.IsPositive() {
			return &ValidationError{
				Field:   fmt.Sprintf("assets[%d].amount", i),
				Message: "转账数量必须大于0",
			}
		}
		if !asset.FromWallet.Valid() || !asset.ToWallet.Valid() {
			return &ValidationError{
				Field:   fmt.Sprintf("assets[%d]", i),
				Message: "钱包类型不合法",
			}
		}
		if asset.FromWallet == asset.ToWallet {
			return &ValidationError{
				Field:   fmt.Sprintf("assets[%d]", i),
				Message: "源钱包与目标钱包不能相同",
			}
		}
	}

	if !req.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "优先级不合法"}
	}

	// 紧急优先级必须由调用方显式确认，服务端重新校验而不信任UI
	if req.Priority == model.PriorityEmergency && !req.EmergencyAcknowledged {
		return &ValidationError{
			Field:   "emergency_acknowledged",
			Message: "紧急优先级需要显式确认",
		}
	}

	return nil
}

// Submit 提交再平衡请求
// 幂等：相同幂等键的重复提交返回既有记录；提交按钱包对串行化
func (p *Processor) Submit(ctx context.Context, req *model.RebalancingRequest, idempotencyKey string, amountInKRW decimal.Decimal) (*model.RebalancingRecord, error) {
	// 任何状态变更之前先校验
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	// 幂等检查：UI双击/重试拿到同一条记录
	if idempotencyKey != "" {
		existingID, err := p.store.GetIdempotentRecordID(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("幂等键检查失败: %w", err)
		}
		if existingID != "" {
			p.logger.Info("命中幂等键，返回既有记录",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("rebalancing_id", existingID))
			return p.store.GetRecord(ctx, existingID)
		}
	}

	// 进程内按钱包对串行化
	lockKey := vaultPairLockKey
	muIface, _ := p.vaultLocks.LoadOrStore(lockKey, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	// 跨实例互斥
	acquired, err := p.locker.AcquireLock(ctx, lockKey, submitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("获取提交锁失败: %w", err)
	}
	if !acquired {
		return nil, ErrRebalancingInFlight
	}
	defer func() {
		if releaseErr := p.locker.ReleaseLock(ctx, lockKey); releaseErr != nil {
			p.logger.Warn("释放提交锁失败", zap.Error(releaseErr))
		}
	}()

	// 同一钱包对最多一笔在途再平衡
	active, err := p.store.HasActiveRecord(ctx)
	if err != nil {
		return nil, fmt.Errorf("检查在途记录失败: %w", err)
	}
	if active {
		return nil, ErrRebalancingInFlight
	}

	// 汇总申请数量（跨资产的名义合计，估值以KRW为准）
	totalAmount := decimal.Zero
	for _, asset := range req.Assets {
		totalAmount = totalAmount.Add(asset.Amount)
	}

	now := time.Now()
	record := &model.RebalancingRecord{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Assets:      req.Assets,
		Amount:      totalAmount,
		AmountInKRW: amountInKRW,
		Reason:      req.Reason,
		Priority:    req.Priority,
		Notes:       req.Notes,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := p.store.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("保存再平衡记录失败: %w", err)
	}

	// 绑定幂等键到新记录
	if idempotencyKey != "" {
		if err := p.store.BindIdempotencyKey(ctx, idempotencyKey, record.ID, idempotencyKeyTTL); err != nil {
			p.logger.Warn("绑定幂等键失败", zap.Error(err),
				zap.String("idempotency_key", idempotencyKey))
		}
	}

	p.publishEvent(ctx, record, "", model.StatusPending, "提交")

	p.logger.Info("再平衡请求已受理",
		zap.String("rebalancing_id", record.ID),
		zap.String("type", string(record.Type)),
		zap.String("priority", string(record.Priority)),
		zap.String("amount_in_krw", record.AmountInKRW.String()))

	return record, nil
}

// Authorize 授权：PENDING → APPROVED
func (p *Processor) Authorize(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	return p.transition(ctx, id, model.StatusApproved, "")
}

// StartProcessing 广播转账：APPROVED → PROCESSING
func (p *Processor) StartProcessing(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	return p.transition(ctx, id, model.StatusProcessing, "")
}

// RequireSignature 多签补签：APPROVED/PROCESSING → SIGNATURE_REQUIRED
func (p *Processor) RequireSignature(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	return p.transition(ctx, id, model.StatusSignatureRequired, "")
}

// ResumeProcessing 补签完成：SIGNATURE_REQUIRED → PROCESSING
func (p *Processor) ResumeProcessing(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	return p.transition(ctx, id, model.StatusProcessing, "")
}

// Cancel 取消：仅在尚未广播链上交易时允许
func (p *Processor) Cancel(ctx context.Context, id, reason string) (*model.RebalancingRecord, error) {
	return p.transition(ctx, id, model.StatusCancelled, reason)
}

// Fail 失败：PROCESSING → FAILED，失败原因记录在记录本身以便审计
func (p *Processor) Fail(ctx context.Context, id, reason string) (*model.RebalancingRecord, error) {
	return p.transition(ctx, id, model.StatusFailed, reason)
}

// Complete 确认完成：根据每个资产的执行结果决定终态
// 全部成功 → COMPLETED；部分成功 → PARTIALLY_COMPLETED；全部失败 → FAILED
// 每个资产的结果单独记录，不止一个汇总标记
func (p *Processor) Complete(ctx context.Context, id string, outcomes []model.TransferOutcome) (*model.RebalancingRecord, error) {
	record, err := p.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	succeeded := 0
	failReason := ""
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		} else if failReason == "" {
			failReason = outcome.FailReason
		}
	}

	target := model.StatusCompleted
	switch {
	case succeeded == 0:
		target = model.StatusFailed
	case succeeded < len(outcomes):
		target = model.StatusPartiallyCompleted
	}

	if err := CheckTransition(record, target); err != nil {
		return nil, err
	}

	now := time.Now()
	duration := now.Sub(record.CreatedAt)
	from := record.Status

	record.Status = target
	record.Outcomes = outcomes
	record.FailureReason = failReason
	record.UpdatedAt = now
	record.CompletedAt = &now
	record.ActualDuration = &duration

	if err := p.store.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("保存再平衡记录失败: %w", err)
	}

	p.publishEvent(ctx, record, from, target, failReason)

	p.logger.Info("再平衡执行完结",
		zap.String("rebalancing_id", record.ID),
		zap.String("status", string(target)),
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(outcomes)),
		zap.Duration("duration", duration))

	return record, nil
}

// GetRecord 查询单条记录（非阻塞，不等待底层转账确认）
func (p *Processor) GetRecord(ctx context.Context, id string) (*model.RebalancingRecord, error) {
	return p.store.GetRecord(ctx, id)
}

// ListHistory 按条件查询再平衡历史
func (p *Processor) ListHistory(ctx context.Context, filter *model.HistoryFilter) ([]*model.RebalancingRecord, error) {
	return p.store.ListRecords(ctx, filter)
}

// transition 执行一次生命周期转换：校验、持久化、发布事件
func (p *Processor) transition(ctx context.Context, id string, to model.RecordStatus, reason string) (*model.RebalancingRecord, error) {
	record, err := p.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := CheckTransition(record, to); err != nil {
		return nil, err
	}

	from := record.Status
	now := time.Now()

	record.Status = to
	record.UpdatedAt = now
	if to == model.StatusFailed || to == model.StatusCancelled {
		record.FailureReason = reason
	}
	if to.Terminal() {
		duration := now.Sub(record.CreatedAt)
		record.CompletedAt = &now
		record.ActualDuration = &duration
	}

	if err := p.store.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("保存再平衡记录失败: %w", err)
	}

	p.publishEvent(ctx, record, from, to, reason)

	p.logger.Info("再平衡状态已转换",
		zap.String("rebalancing_id", record.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	return record, nil
}

// publishEvent 发布生命周期事件，失败只记日志，不影响主流程
func (p *Processor) publishEvent(ctx context.Context, record *model.RebalancingRecord, from, to model.RecordStatus, reason string) {
	event := &model.LifecycleEvent{
		EventID:       uuid.NewString(),
		RebalancingID: record.ID,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
		Timestamp:     time.Now(),
	}

	if err := p.events.PublishLifecycleEvent(ctx, event); err != nil {
		p.logger.Error("发布生命周期事件失败",
			zap.Error(err),
			zap.String("rebalancing_id", record.ID),
			zap.String("to", string(to)))
	}
}
