package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
)

// 偏差类告警的规则键
const (
	ruleDeviation    = "balance:deviation"
	ruleWalletHealth = "wallet:health:"
)

// Store 告警存储接口
// 告警只追加不删除，保留完整审计记录
type Store interface {
	SaveAlert(ctx context.Context, alert *model.VaultAlert) error
	GetAlert(ctx context.Context, id string) (*model.VaultAlert, error)
	ListAlerts(ctx context.Context, activeOnly bool) ([]*model.VaultAlert, error)
}

// Notifier 告警通知发布接口
type Notifier interface {
	PublishAlertNotification(ctx context.Context, alert *model.VaultAlert) error
}

// Evaluator 告警评估器
// 从分级结果和钱包健康信号派生告警；条件变化时创建新告警而不是修改旧告警
type Evaluator struct {
	logger   *zap.Logger
	store    Store
	notifier Notifier

	// 每个规则当前的触发状态，用于只在条件跨越阈值时产生告警
	mu        sync.Mutex
	lastState map[string]string
	// 规则对应的当前autoResolve告警，条件恢复时自动消解
	activeAuto map[string]string
}

// NewEvaluator 创建告警评估器
func NewEvaluator(logger *zap.Logger, store Store, notifier Notifier) *Evaluator {
	return &Evaluator{
		logger:     logger.With(zap.String("component", "alert_evaluator")),
		store:      store,
		notifier:   notifier,
		lastState:  make(map[string]string),
		activeAuto: make(map[string]string),
	}
}

// EvaluateBalance 根据热冷比例分级结果评估偏差告警
func (e *Evaluator) EvaluateBalance(ctx context.Context, status model.BalanceStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := string(status.DeviationStatus)
	previous := e.lastState[ruleDeviation]
	if current == previous {
		return nil
	}
	e.lastState[ruleDeviation] = current

	switch status.DeviationStatus {
	case model.DeviationCritical:
		// 紧急程度按偏差幅度取整，封顶10
		urgency := int(status.Deviation.Abs().Round(0).IntPart())
		if urgency > 10 {
			urgency = 10
		}
		alert := &model.VaultAlert{
			ID:       uuid.NewString(),
			Severity: model.AlertCritical,
			Title:    "热冷钱包比例严重失衡",
			Message: fmt.Sprintf("热钱包比例偏离目标%s%%，当前分级为CRITICAL",
				status.Deviation.StringFixed(2)),
			Metadata: model.AlertMetadata{
				RecommendedAction: "initiate rebalancing",
				UrgencyLevel:      urgency,
			},
			CreatedAt: time.Now(),
		}
		return e.createAlert(ctx, ruleDeviation, alert)

	case model.DeviationWarning:
		alert := &model.VaultAlert{
			ID:       uuid.NewString(),
			Severity: model.AlertWarning,
			Title:    "热冷钱包比例偏离预警",
			Message: fmt.Sprintf("热钱包比例偏离目标%s%%，已进入WARNING区间",
				status.Deviation.StringFixed(2)),
			CreatedAt:   time.Now(),
			AutoResolve: true, // 比例回归后自动消解，无需人工介入
		}
		return e.createAlert(ctx, ruleDeviation, alert)

	default:
		// 条件恢复：自动消解此前的autoResolve告警
		return e.autoResolveRule(ctx, ruleDeviation)
	}
}

// EvaluateWalletHealth 根据钱包运行状态评估健康告警
// 冷钱包的托管故障影响面更大，告警级别高于热钱包
func (e *Evaluator) EvaluateWalletHealth(ctx context.Context, wallet model.WalletInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ruleKey := ruleWalletHealth + string(wallet.WalletKind)
	current := string(wallet.Status)
	previous := e.lastState[ruleKey]
	if current == previous {
		return nil
	}
	e.lastState[ruleKey] = current

	switch wallet.Status {
	case model.WalletStatusCritical, model.WalletStatusLow, model.WalletStatusHigh:
		severity := model.AlertError
		if wallet.WalletKind == model.WalletCold {
			severity = model.AlertCritical
		}
		alert := &model.VaultAlert{
			ID:       uuid.NewString(),
			Severity: severity,
			Title:    fmt.Sprintf("%s钱包状态异常", wallet.WalletKind),
			Message: fmt.Sprintf("%s钱包状态为%s，健康评分%d",
				wallet.WalletKind, wallet.Status, wallet.HealthScore),
			CreatedAt: time.Now(),
		}
		return e.createAlert(ctx, ruleKey, alert)

	default:
		return e.autoResolveRule(ctx, ruleKey)
	}
}

// Resolve 人工消解告警
// 幂等：重复消解同一告警是空操作而不是错误
func (e *Evaluator) Resolve(ctx context.Context, alertID string) error {
	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return err
	}

	if alert.IsResolved {
		return nil
	}

	now := time.Now()
	alert.IsResolved = true
	alert.ResolvedAt = &now

	if err := e.store.SaveAlert(ctx, alert); err != nil {
		return fmt.Errorf("保存告警失败: %w", err)
	}

	e.logger.Info("告警已消解", zap.String("alert_id", alertID))
	return nil
}

// ListAlerts 查询告警列表
func (e *Evaluator) ListAlerts(ctx context.Context, activeOnly bool) ([]*model.VaultAlert, error) {
	return e.store.ListAlerts(ctx, activeOnly)
}

// createAlert 持久化并通知一条新告警
func (e *Evaluator) createAlert(ctx context.Context, ruleKey string, alert *model.VaultAlert) error {
	if err := e.store.SaveAlert(ctx, alert); err != nil {
		return fmt.Errorf("保存告警失败: %w", err)
	}

	if alert.AutoResolve {
		e.activeAuto[ruleKey] = alert.ID
	} else {
		delete(e.activeAuto, ruleKey)
	}

	if e.notifier != nil {
		if err := e.notifier.PublishAlertNotification(ctx, alert); err != nil {
			e.logger.Error("发布告警通知失败",
				zap.Error(err),
				zap.String("alert_id", alert.ID))
		}
	}

	e.logger.Warn("已创建告警",
		zap.String("alert_id", alert.ID),
		zap.String("severity", string(alert.Severity)),
		zap.String("title", alert.Title))

	return nil
}

// autoResolveRule 条件恢复后消解该规则下的autoResolve告警
func (e *Evaluator) autoResolveRule(ctx context.Context, ruleKey string) error {
	alertID, ok := e.activeAuto[ruleKey]
	if !ok {
		return nil
	}
	delete(e.activeAuto, ruleKey)

	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.IsResolved || !alert.AutoResolve {
		return nil
	}

	now := time.Now()
	alert.IsResolved = true
	alert.ResolvedAt = &now

	if err := e.store.SaveAlert(ctx, alert); err != nil {
		return fmt.Errorf("保存告警失败: %w", err)
	}

	e.logger.Info("条件已恢复，自动消解告警", zap.String("alert_id", alertID))
	return nil
}
