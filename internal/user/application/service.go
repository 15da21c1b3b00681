package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost         = 12
	minPasswordLength  = 8
	tempPasswordLength = 20
	resetTokenTTL      = 24 * time.Hour
)

// CartCreator 注册时为新用户建立购物车，由购物车应用服务实现
type CartCreator interface {
	CreateForUser(ctx context.Context, userID uint) error
}

// Mailer 账户类邮件出口，由通知应用服务实现
// 发送失败不阻断业务流程，调用方只记录日志
type Mailer interface {
	SendAccountEmail(ctx context.Context, user *domain.User, token, tempPassword string) error
}

// UserService 账户应用服务
type UserService struct {
	users  domain.UserRepository
	carts  CartCreator
	mailer Mailer
}

func NewUserService(users domain.UserRepository, carts CartCreator, mailer Mailer) *UserService {
	return &UserService{users: users, carts: carts, mailer: mailer}
}

// Register 注册新账户
// 同一事务内创建用户与空购物车，随后生成一次性令牌并邮件下发临时密码
func (s *UserService) Register(ctx context.Context, username, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrUsernameExists
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrEmailExists
	}

	tempPassword, err := RandomPassword(tempPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Enabled:      true,
	}
	token := uuid.NewString()

	err = s.users.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		if err := s.carts.CreateForUser(txCtx, user.ID); err != nil {
			return err
		}
		return s.users.SaveResetToken(txCtx, &domain.PasswordResetToken{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(resetTokenTTL),
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendAccountEmail(ctx, user, token, tempPassword); err != nil {
		logging.Error(ctx, "failed to send account verification email", "user_id", user.ID, "error", err)
	}

	logging.Info(ctx, "user registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Authenticate 校验用户名与密码
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Enabled {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// GetUser 按 ID 获取用户
func (s *UserService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// ConfirmToken 消费一次性令牌，返回对应用户
func (s *UserService) ConfirmToken(ctx context.Context, token string) (*domain.User, error) {
	reset, err := s.users.GetResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if reset == nil || reset.IsExpired() {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, reset.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}

	if err := s.users.DeleteResetToken(ctx, token); err != nil {
		logging.Error(ctx, "failed to delete consumed token", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// ResetPassword 找回密码：写入新的临时密码并邮件下发令牌链接
// 邮箱不存在时返回 ErrUserNotFound，页面据此提示
func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user == nil {
		logging.Warn(ctx, "password reset requested for unknown email")
		return domain.ErrUserNotFound
	}

	tempPassword, err := RandomPassword(tempPasswordLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcryptCost)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	err = s.users.WithTx(ctx, func(txCtx context.Context) error {
		user.PasswordHash = string(hash)
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return s.users.SaveResetToken(txCtx, &domain.PasswordResetToken{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(resetTokenTTL),
		})
	})
	if err != nil {
		return err
	}

	// 邮件尽力而为，发送失败不回退已写入的新密码
	if err := s.mailer.SendAccountEmail(ctx, user, token, tempPassword); err != nil {
		logging.Error(ctx, "failed to send password reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

// UpdateInfoCommand 个人信息更新表单
type UpdateInfoCommand struct {
	FirstName       string
	LastName        string
	Username        string
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UpdateInfo 更新个人信息，可选改密（需校验当前密码，新密码至少 8 位）
func (s *UserService) UpdateInfo(ctx context.Context, userID uint, cmd UpdateInfoCommand) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(cmd.Username)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	if other, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if other != nil && other.ID != user.ID {
		return nil, domain.ErrEmailExists
	}
	if other, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if other != nil && other.ID != user.ID {
		return nil, domain.ErrUsernameExists
	}

	if cmd.NewPassword != "" {
		if len(cmd.NewPassword) < minPasswordLength {
			return nil, domain.ErrPasswordTooShort
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.CurrentPassword)) != nil {
			return nil, domain.ErrIncorrectPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cmd.NewPassword), bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	user.FirstName = strings.TrimSpace(cmd.FirstName)
	user.LastName = strings.TrimSpace(cmd.LastName)
	user.Username = username
	user.Email = email

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
