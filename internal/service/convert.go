package service

import (
	"time"

	"planning-t8/backend/internal/dto"
	"planning-t8/backend/internal/model"
)

// ── DTO 转换辅助 ──

const dateLayout = "2006-01-02"

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{
		ID:        u.UserID,
		Matricule: u.Matricule,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:            u.UserID,
		Matricule:     u.Matricule,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		IsActiveAgent: u.IsActiveAgent,
	}
	if u.HireDate != nil {
		resp.HireDate = u.HireDate.Format(dateLayout)
	}
	return resp
}

func toPlanningBrief(p *model.Planning) *dto.PlanningBrief {
	if p == nil {
		return nil
	}
	return &dto.PlanningBrief{
		ID:           p.PlanningID,
		Date:         p.Date.Format(dateLayout),
		ServiceType:  p.ServiceType,
		ServiceLabel: model.ServiceLabel(p.ServiceType),
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Line:         p.Line,
	}
}

func toPlanningResponse(p *model.Planning) dto.PlanningResponse {
	return dto.PlanningResponse{
		ID:           p.PlanningID,
		Date:         p.Date.Format(dateLayout),
		ServiceType:  p.ServiceType,
		ServiceLabel: model.ServiceLabel(p.ServiceType),
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Line:         p.Line,
		Note:         p.Note,
		Agent:        toUserBrief(p.Agent),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// toExchangeResponse 按查看者视角计算 can_respond / can_decide / can_cancel
func toExchangeResponse(e *model.ExchangeRequest, viewerID, viewerRole string) dto.ExchangeResponse {
	return dto.ExchangeResponse{
		ID:                e.ExchangeRequestID,
		Status:            e.Status,
		Requester:         toUserBrief(e.Requester),
		Recipient:         toUserBrief(e.Recipient),
		RequesterShift:    toPlanningBrief(e.RequesterShift),
		RecipientShift:    toPlanningBrief(e.RecipientShift),
		RequesterMessage:  e.RequesterMessage,
		RecipientComment:  e.RecipientComment,
		SupervisorComment: e.SupervisorComment,
		Supervisor:        toUserBrief(e.Supervisor),
		RespondedAt:       formatTimePtr(e.RespondedAt),
		DecidedAt:         formatTimePtr(e.DecidedAt),
		SwapApplied:       e.Status == model.ExchangeValidatedBySupervisor,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
		CanRespond:        viewerID == e.RecipientID && e.CanBeRespondedByAgent(),
		CanDecide:         CanDecide(viewerRole) && e.CanBeDecidedBySupervisor(),
		CanCancel:         viewerID == e.RequesterID && e.CanBeCancelled(),
	}
}

func toExchangeHistoryResponse(h *model.ExchangeHistory) dto.ExchangeHistoryResponse {
	return dto.ExchangeHistoryResponse{
		ID:        h.HistoryID,
		Action:    h.Action,
		Actor:     toUserBrief(h.Actor),
		Comment:   h.Comment,
		CreatedAt: h.CreatedAt.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/convert.go
