package model

import "fmt"

// Role 用户角色，闭合枚举
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole 在边界处解析角色字符串，未知角色返回错误
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("未知角色: %q", s)
	}
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
