package admin

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthSettings 来自 jwt 和 user 配置
type AuthSettings struct {
	SecretKey    string
	Issuer       string
	ExpiresIn    time.Duration
	DefaultQuota int64
}

type authService struct {
	userRepo repositories.UserRepository
	settings AuthSettings
}

// 确保authService实现了AuthService的方法
var _ AuthService = (*authService)(nil)

func NewAuthService(userRepo repositories.UserRepository, settings AuthSettings) AuthService {
	return &authService{
		userRepo: userRepo,
		settings: settings,
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("auth service: invalid email: %w", xerr.ErrValidationFailed)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("auth service: password too short: %w", xerr.ErrValidationFailed)
	}

	//检查邮箱是否存在
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("auth service: %w", xerr.ErrEmailAlreadyExists)
	}
	if !errors.Is(err, xerr.ErrUserNotFound) {
		return nil, fmt.Errorf("auth service: %w: %v", xerr.ErrDatabaseError, err)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", xerr.ErrInternalServer)
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: &hashedPassword,
		StorageQuota: s.settings.DefaultQuota,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth service: %w: %v", xerr.ErrDatabaseError, err)
	}

	logger.Info("Register: User registered", zap.String("userID", user.ID), zap.String("email", email))
	return user, nil
}

// Login 只支持本地密码账户，没有密码的 OAuth 账户直接拒绝
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, xerr.ErrUserNotFound) {
			return nil, fmt.Errorf("auth service: %w", xerr.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("auth service: %w: %v", xerr.ErrDatabaseError, err)
	}
	if user.PasswordHash == nil || !utils.CheckPasswordHash(password, *user.PasswordHash) {
		logger.Warn("Login: Invalid credentials", zap.String("email", email))
		return nil, fmt.Errorf("auth service: %w", xerr.ErrInvalidCredentials)
	}

	token, err := utils.GenerateToken(user.ID, user.Email, s.settings.SecretKey, s.settings.Issuer, s.settings.ExpiresIn)
	if err != nil {
		logger.Error("Login: Failed to generate token", zap.String("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("auth service: %w", xerr.ErrInternalServer)
	}

	logger.Info("Login: User logged in", zap.String("userID", user.ID))
	return &LoginResult{Token: token, User: user}, nil
}
