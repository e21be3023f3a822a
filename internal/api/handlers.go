package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/model"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/rebalancing"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/services"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/storage"
)

// Handlers 金库接口处理器
type Handlers struct {
	vaultService *services.VaultService
	logger       *zap.Logger
}

// NewHandlers 创建接口处理器
func NewHandlers(vaultService *services.VaultService, logger *zap.Logger) *Handlers {
	return &Handlers{
		vaultService: vaultService,
		logger:       logger,
	}
}

// errorResponse 错误响应体
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// submitResponse 提交再平衡的响应体
type submitResponse struct {
	RebalancingID string             `json:"rebalancing_id"`
	Status        model.RecordStatus `json:"status"`
}

// Health 健康检查
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetVaultStatus 查询金库状态
func (h *Handlers) GetVaultStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.vaultService.GetVaultStatus(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// GetRebalancingCalculation 按需测算再平衡转账
// 可选查询参数target_hot_ratio覆盖策略目标比例
func (h *Handlers) GetRebalancingCalculation(w http.ResponseWriter, r *http.Request) {
	var target *decimal.Decimal
	if raw := r.URL.Query().Get("target_hot_ratio"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "target_hot_ratio格式不正确",
				Field: "target_hot_ratio",
			})
			return
		}
		target = &parsed
	}

	calc, err := h.vaultService.GetRebalancingCalculation(r.Context(), target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, calc)
}

// SubmitRebalancing 提交再平衡请求
// 幂等键从Idempotency-Key请求头读取
func (h *Handlers) SubmitRebalancing(w http.ResponseWriter, r *http.Request) {
	var req model.RebalancingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "请求体解析失败"})
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	record, err := h.vaultService.SubmitRebalancingRequest(r.Context(), &req, idempotencyKey)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, submitResponse{
		RebalancingID: record.ID,
		Status:        record.Status,
	})
}

// GetRebalancingRecord 查询单条再平衡记录
func (h *Handlers) GetRebalancingRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.vaultService.GetRebalancingRecord(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// CancelRebalancing 取消再平衡请求
func (h *Handlers) CancelRebalancing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Reason string `json:"reason"`
	}
	// 取消原因可选，空请求体也接受
	_ = json.NewDecoder(r.Body).Decode(&body)

	record, err := h.vaultService.CancelRebalancing(r.Context(), id, body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// ListRebalancingHistory 按条件查询再平衡历史
func (h *Handlers) ListRebalancingHistory(w http.ResponseWriter, r *http.Request) {
	filter := &model.HistoryFilter{
		Search: r.URL.Query().Get("search"),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, model.RecordStatus(s))
		}
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.Types = append(filter.Types, model.RebalanceDirection(t))
		}
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &from
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &to
		}
	}

	records, err := h.vaultService.ListRebalancingHistory(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

// ListAlerts 查询告警列表
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	alerts, err := h.vaultService.ListAlerts(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, alerts)
}

// ResolveAlert 消解告警（幂等，重复消解返回成功）
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.vaultService.ResolveAlert(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// writeError 按错误类型映射HTTP状态码
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var validationErr *rebalancing.ValidationError
	var transitionErr *rebalancing.InvalidStateTransitionError
	var balanceErr *rebalancing.InsufficientBalanceError

	switch {
	case errors.As(err, &validationErr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: validationErr.Error(),
			Field: validationErr.Field,
		})
	case errors.As(err, &transitionErr):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: transitionErr.Error()})
	case errors.As(err, &balanceErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: balanceErr.Error()})
	case errors.Is(err, rebalancing.ErrRebalancingInFlight):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("请求处理失败", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "内部错误"})
	}
}

// writeJSON 输出JSON响应
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("序列化响应失败", zap.Error(err))
	}
}
