package entity

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	Base
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password"`
	Phone        *string    `db:"phone"`
	Role         UserRole   `db:"role"`
	IsBanned     bool       `db:"is_banned"`
	BannedAt     *time.Time `db:"banned_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
