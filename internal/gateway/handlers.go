// Package gateway 工程师端 HTTP 接口：接车单列表/详情、开工、对账完工。
// 路由只做编解码与错误映射，状态流转规则全部在 repair 包里。
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/AutoFixLink/AutoFixLink/internal/common/server"
	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

// HeaderSessionExpired 会话失效信号头。后端判定凭证过期时置 1，
// 客户端据此清理本地会话并跳转登录。
const HeaderSessionExpired = "X-Session-Expired"

// ReceiptBackend 接车单后端的读与状态上报。
type ReceiptBackend interface {
	ListUnprocessed(ctx context.Context) ([]repair.Record, error)
	ListMine(ctx context.Context, manager string) ([]repair.Record, error)
	Get(ctx context.Context, id string) (*repair.Record, error)
	ReportStart(ctx context.Context, id, manager string) error
	ReportComplete(ctx context.Context, id, manager string) error
}

// OrderBackend 采购单后端的对账与完工明细上报。
type OrderBackend interface {
	FetchOrderedParts(ctx context.Context, receiptID, vehiclePlate string) ([]repair.PartLine, error)
	SubmitRepairDetail(ctx context.Context, receiptID string, summary repair.CompletionSummary) error
}

// AuditStore 流转审计。允许为 nil（未配置数据库时网关照常工作）。
type AuditStore interface {
	RecordStart(ctx context.Context, rec *repair.Record) error
	RecordComplete(ctx context.Context, rec *repair.Record) error
}

// Handler 网关路由及其依赖。
type Handler struct {
	receipts ReceiptBackend
	orders   OrderBackend
	ctrl     *repair.Controller
	audit    AuditStore
	log      logger.Logger

	// 同一张单的 取单-流转-上报 序列整体串行。
	// Controller 内部的锁只保护单个 Record 实例；每个请求从后端取的是
	// 各自的副本，不在这里锁住整个序列的话，并发的两次流转都能通过
	// 前置状态检查，后端也会收到两次上报。
	locks repair.KeyedMutex
}

func NewHandler(receipts ReceiptBackend, orders OrderBackend, ctrl *repair.Controller, audit AuditStore, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{receipts: receipts, orders: orders, ctrl: ctrl, audit: audit, log: log}
}

// Routes 组装路由表。
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/v1/receipts/", h.dispatch)
	return mux
}

// dispatch 手工解析 /api/v1/receipts/ 之后的路径段并分发。
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/receipts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "unprocessed":
		h.requireGet(w, r, h.listUnprocessed)
	case len(parts) == 1 && parts[0] == "mine":
		h.requireGet(w, r, h.listMine)
	case len(parts) == 1 && parts[0] != "":
		h.requireGet(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.getReceipt(w, r, parts[0])
		})
	case len(parts) == 2 && parts[1] == "ordered-parts":
		h.requireGet(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.orderedParts(w, r, parts[0])
		})
	case len(parts) == 2 && parts[1] == "start":
		h.requirePost(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.startRepair(w, r, parts[0])
		})
	case len(parts) == 2 && parts[1] == "complete":
		h.requirePost(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.completeRepair(w, r, parts[0])
		})
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) requireGet(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	next(w, r)
}

func (h *Handler) requirePost(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	next(w, r)
}

func (h *Handler) listUnprocessed(w http.ResponseWriter, r *http.Request) {
	recs, err := h.receipts.ListUnprocessed(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordViews(recs))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	manager := managerFallback(h.session(r), r.URL.Query().Get("manager"))
	if manager == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation failed",
			Reasons: []string{"manager is required"},
		})
		return
	}
	recs, err := h.receipts.ListMine(r.Context(), manager)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordViews(recs))
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.receipts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordView(rec))
}

func (h *Handler) orderedParts(w http.ResponseWriter, r *http.Request, id string) {
	lines, err := h.orders.FetchOrderedParts(r.Context(), id, r.URL.Query().Get("plate"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// startRepair 开工：先取单验证前置状态，再把流转同步回接车单后端。
func (h *Handler) startRepair(w http.ResponseWriter, r *http.Request, id string) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// 并发的第二次请求在这里等待，随后重新取到流转后的状态并以 409 失败
	unlock := h.locks.Lock(id)
	defer unlock()

	rec, err := h.receipts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// 鉴权开启时负责人来自会话；否则退回请求体里显式给出的负责人
	sess := h.session(r)
	if sess.Name == "" && sess.EngineerID == "" {
		sess.Name = strings.TrimSpace(req.Manager)
	}
	if err := h.ctrl.StartRepair(rec, sess); err != nil {
		h.writeError(w, err)
		return
	}

	// 本地流转成功后同步后端；后端失败原样上抛，由调用方重试
	if err := h.receipts.ReportStart(r.Context(), id, rec.Manager); err != nil {
		h.writeError(w, err)
		return
	}
	h.recordAudit(r.Context(), rec, false)

	writeJSON(w, http.StatusOK, toRecordView(rec))
}

// completeRepair 完工：对账采购清单 + 手工额外用料，校验后上报完工明细。
func (h *Handler) completeRepair(w http.ResponseWriter, r *http.Request, id string) {
	var req completeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// 与 startRepair 同一把单号锁，完工序列同样整体串行
	unlock := h.locks.Lock(id)
	defer unlock()

	rec, err := h.receipts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ordered, err := h.orders.FetchOrderedParts(r.Context(), id, rec.VehiclePlate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	summary := repair.MergeLines(req.CompletionDate, req.RepairDescription, req.Cause, ordered, req.ExtraLines)
	if err := h.ctrl.Complete(rec, summary); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.orders.SubmitRepairDetail(r.Context(), id, summary); err != nil {
		h.writeError(w, err)
		return
	}
	// 完工状态同步回接车单后端，否则后端视角的单子停留在维修中
	if err := h.receipts.ReportComplete(r.Context(), id, rec.Manager); err != nil {
		h.writeError(w, err)
		return
	}
	h.recordAudit(r.Context(), rec, true)

	if rec.LeadTimeDays == nil {
		h.log.WithFields(map[string]interface{}{"receipt_id": rec.ID}).
			Warn("intake date unparseable, lead time unknown")
	}
	writeJSON(w, http.StatusOK, toRecordView(rec))
}

// recordAudit 审计写失败只记日志，不影响已经完成的流转。
func (h *Handler) recordAudit(ctx context.Context, rec *repair.Record, completed bool) {
	if h.audit == nil {
		return
	}
	var err error
	if completed {
		err = h.audit.RecordComplete(ctx, rec)
	} else {
		err = h.audit.RecordStart(ctx, rec)
	}
	if err != nil {
		h.log.WithFields(map[string]interface{}{
			"receipt_id": rec.ID,
			"error":      err.Error(),
		}).Error("failed to write transition audit")
	}
}

// session 从鉴权中间件注入的上下文取会话；未启用鉴权时为空会话。
func (h *Handler) session(r *http.Request) repair.SessionContext {
	ai, ok := server.AuthFromContext(r.Context())
	if !ok {
		return repair.SessionContext{}
	}
	return repair.SessionContext{EngineerID: ai.Subject, Name: ai.Name}
}

// writeError 把领域错误映射为 HTTP 状态码与统一错误体。
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if repair.IsInvalidTransition(err) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if ve, ok := repair.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation failed",
			Reasons: ve.Reasons,
		})
		return
	}
	if fe, ok := repair.AsFetch(err); ok {
		switch fe.Kind {
		case repair.FetchUnauthorized:
			w.Header().Set(HeaderSessionExpired, "1")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "session expired", Logout: true})
		case repair.FetchNotFound:
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "receipt not found"})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		}
		return
	}
	h.log.WithFields(map[string]interface{}{"error": err.Error()}).Error("unhandled gateway error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// decodeBody 解码请求体；空请求体视同空对象。
func decodeBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// managerFallback 会话名优先，其次请求里显式给出的负责人。
func managerFallback(sess repair.SessionContext, explicit string) string {
	if name := strings.TrimSpace(sess.Name); name != "" {
		return name
	}
	if id := strings.TrimSpace(sess.EngineerID); id != "" {
		return id
	}
	return strings.TrimSpace(explicit)
}
