package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей платформы.
const (
	RoleClient   = "client"
	RoleEmployee = "employee"
	RoleFinance  = "finance"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

var ValidRoles = map[string]struct{}{
	RoleClient:   {},
	RoleEmployee: {},
	RoleFinance:  {},
	RoleManager:  {},
	RoleAdmin:    {},
}

// User — учётная запись. Служит источником идентичности и роли для
// проверок доступа в сервисном слое.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Phone        string    `db:"phone" json:"phone"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsStaff      bool      `db:"is_staff" json:"is_staff"`
	IsSuperuser  bool      `db:"is_superuser" json:"is_superuser"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdminLike считает пользователя администратором, если он staff/superuser
// или его роль admin/manager.
func (u *User) IsAdminLike() bool {
	if u == nil {
		return false
	}
	return u.IsStaff || u.IsSuperuser || u.Role == RoleAdmin || u.Role == RoleManager
}

// IsFinance — доступ к финансовым операциям (также открыт администраторам).
func (u *User) IsFinance() bool {
	if u == nil {
		return false
	}
	return u.Role == RoleFinance || u.IsAdminLike()
}
