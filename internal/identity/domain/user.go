package domain

import (
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
)

// UserRole 用户角色
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleTalent UserRole = "TALENT"
	RoleClient UserRole = "CLIENT"
)

// User 身份账户实体
type User struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           UserRole   `json:"role"`
	EmailConfirmed bool       `json:"email_confirmed"`
	ConfirmedAt    *time.Time `json:"confirmed_at"`
}

// NewUser 创建待确认或已激活的身份账户
func NewUser(email, passwordHash string, confirmed bool) *User {
	u := &User{
		ID:             fmt.Sprintf("USR-%d", idgen.GenID()),
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           RoleTalent,
		EmailConfirmed: confirmed,
	}
	if confirmed {
		now := time.Now()
		u.ConfirmedAt = &now
	}
	return u
}
