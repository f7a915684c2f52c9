package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusevents/internal/domain"
)

type userService struct {
	users          domain.UserRepository
	departments    []string
	adminIDs       map[int64]struct{}
	clock          domain.Clock
	contextTimeout time.Duration
}

// NewUserService wires the registration service. adminIDs is the static
// allow-list from configuration; membership sets the admin flag at
// registration time.
func NewUserService(users domain.UserRepository, departments []string, adminIDs []int64, clock domain.Clock, timeout time.Duration) domain.UserService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &userService{
		users:          users,
		departments:    departments,
		adminIDs:       admins,
		clock:          clock,
		contextTimeout: timeout,
	}
}

func (s *userService) Register(ctx context.Context, input domain.RegisterUserInput) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input.TelegramID == 0 {
		return nil, fmt.Errorf("%w: telegram id is required", domain.ErrValidation)
	}
	if err := domain.ValidateText("full name", input.FullName); err != nil {
		return nil, err
	}
	if err := domain.ValidateText("phone", input.Phone); err != nil {
		return nil, err
	}
	if !s.validDepartment(input.Department) {
		return nil, fmt.Errorf("%w: unknown department %q", domain.ErrValidation, input.Department)
	}

	if _, err := s.users.GetByID(ctx, input.TelegramID); err == nil {
		return nil, domain.ErrDuplicateUser
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	_, isAdmin := s.adminIDs[input.TelegramID]
	user := &domain.User{
		TelegramID: input.TelegramID,
		FullName:   input.FullName,
		Department: input.Department,
		Phone:      input.Phone,
		IsAdmin:    isAdmin,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, telegramID int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.users.GetByID(ctx, telegramID)
}

func (s *userService) IsRegistered(ctx context.Context, telegramID int64) (bool, error) {
	_, err := s.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *userService) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	user, err := s.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *userService) validDepartment(name string) bool {
	for _, d := range s.departments {
		if d == name {
			return true
		}
	}
	return false
}
