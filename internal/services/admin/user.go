package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
)

type UserService interface {
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
}

// UserProfile 用户信息和空间使用情况
type UserProfile struct {
	*models.User
	AvailableSpace int64 `json:"available_space"`
}

type userService struct {
	userRepo repositories.UserRepository
}

var _ UserService = (*userService)(nil)

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, xerr.ErrUserNotFound) {
			logger.Warn("GetUserProfile: User not found", zap.String("userID", userID))
			return nil, fmt.Errorf("user service: %w", err)
		}
		logger.Error("GetUserProfile: Error retrieving user from DB", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("user service: %w: %v", xerr.ErrDatabaseError, err)
	}
	return &UserProfile{User: user, AvailableSpace: user.AvailableSpace()}, nil
}
