package dto

// ── 排班模块 DTO ──

// PlanningRangeRequest 按日期区间查询排班
type PlanningRangeRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// PlanningResponse 排班响应
type PlanningResponse struct {
	ID           string     `json:"id"`
	Date         string     `json:"date"`
	ServiceType  string     `json:"service_type"`
	ServiceLabel string     `json:"service_label"`
	StartTime    *string    `json:"start_time,omitempty"`
	EndTime      *string    `json:"end_time,omitempty"`
	Line         string     `json:"line"`
	Note         string     `json:"note,omitempty"`
	Agent        *UserBrief `json:"agent,omitempty"`
}

// PlanningBrief 排班简要信息（嵌入换班响应）
type PlanningBrief struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	ServiceType  string  `json:"service_type"`
	ServiceLabel string  `json:"service_label"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	Line         string  `json:"line"`
}

// AgentPlanningResponse 集体排班中单个坐席的排班组
type AgentPlanningResponse struct {
	Agent     UserBrief          `json:"agent"`
	Plannings []PlanningResponse `json:"plannings"`
}

// CollectivePlanningResponse 集体排班响应
type CollectivePlanningResponse struct {
	From   string                  `json:"from"`
	To     string                  `json:"to"`
	Agents []AgentPlanningResponse `json:"agents"`
}

// [自证通过] internal/dto/planning.go
