package domain

import "context"

// UserRepository 用户仓储接口
type UserRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Save(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// FactorRepository 二次认证因子仓储接口
type FactorRepository interface {
	Save(ctx context.Context, factor *Factor) error
	GetByID(ctx context.Context, id string) (*Factor, error)
	ListByUserID(ctx context.Context, userID string) ([]*Factor, error)
	Delete(ctx context.Context, id string) error
}

// SMSSender 短信发送端口，由外部网关实现
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, content string) error
}
