package dto

// ── 用户模块响应 ──

// UserResponse 用户信息响应
type UserResponse struct {
	ID            string `json:"id"`
	Matricule     string `json:"matricule"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Role          string `json:"role"`
	HireDate      string `json:"hire_date,omitempty"`
	IsActiveAgent bool   `json:"is_active_agent"`
}

// UserBrief 用户简要信息（嵌入其他响应）
type UserBrief struct {
	ID        string `json:"id"`
	Matricule string `json:"matricule"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 返回页码（默认 1）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 返回每页条数（默认 20）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 返回查询偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
