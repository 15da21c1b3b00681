// Package domain 包含用户账户的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	// RoleUser 普通用户角色
	RoleUser = "ROLE_USER"
	// RoleAdmin 管理员角色
	RoleAdmin = "ROLE_ADMIN"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists 用户名已被占用
	ErrUsernameExists = errors.New("username already exists")
	// ErrEmailExists 邮箱已被占用
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrIncorrectPassword 当前密码校验失败
	ErrIncorrectPassword = errors.New("incorrect current password")
	// ErrPasswordTooShort 新密码不足最小长度
	ErrPasswordTooShort = errors.New("password too short")
	// ErrInvalidToken 验证令牌无效或已过期
	ErrInvalidToken = errors.New("invalid or expired token")
)

// User 账户实体，注册时创建，永不硬删除
type User struct {
	gorm.Model
	// 用户名
	Username string `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	// 邮箱
	Email string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	// bcrypt 密码散列
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	// 名
	FirstName string `gorm:"column:first_name;type:varchar(100)" json:"first_name"`
	// 姓
	LastName string `gorm:"column:last_name;type:varchar(100)" json:"last_name"`
	// 角色
	Role string `gorm:"column:role;type:varchar(20);not null;default:'ROLE_USER'" json:"role"`
	// 是否启用
	Enabled bool `gorm:"column:enabled;not null;default:true" json:"enabled"`
}

func (User) TableName() string { return "users" }

// PasswordResetToken 一次性验证令牌，注册确认与找回密码共用
type PasswordResetToken struct {
	gorm.Model
	// 令牌值
	Token string `gorm:"column:token;type:varchar(64);uniqueIndex;not null" json:"token"`
	// 所属用户 ID
	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`
	// 过期时间
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

// IsExpired 令牌是否已过期
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// 保存用户
	Save(ctx context.Context, user *User) error
	// 按 ID 获取用户，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id uint) (*User, error)
	// 按用户名获取用户
	GetByUsername(ctx context.Context, username string) (*User, error)
	// 按邮箱获取用户
	GetByEmail(ctx context.Context, email string) (*User, error)
	// 保存验证令牌
	SaveResetToken(ctx context.Context, token *PasswordResetToken) error
	// 按令牌值获取验证令牌
	GetResetToken(ctx context.Context, token string) (*PasswordResetToken, error)
	// 删除验证令牌
	DeleteResetToken(ctx context.Context, token string) error
	// WithTx 在单个存储事务内执行 fn
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
