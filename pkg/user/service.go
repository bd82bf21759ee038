// Package user manages shareit accounts and keeps emails unique.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"shareit/pkg/apperr"
	"shareit/pkg/models"
)

var validate = validator.New()

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Check returns the user or a NotFound error.
func (s *Service) Check(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user by ID: %d - not found", id)
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Service) Create(ctx context.Context, in models.UserInput) (models.UserDto, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.UserDto{}, apperr.BadRequest("user name is empty")
	}
	if in.Email == nil {
		return models.UserDto{}, apperr.BadRequest("user email is empty")
	}
	email, err := normalizeEmail(*in.Email)
	if err != nil {
		return models.UserDto{}, err
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return models.UserDto{}, err
	}

	u := models.User{Name: strings.TrimSpace(*in.Name), Email: email}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.UserDto{}, emailTaken(email)
		}
		return models.UserDto{}, fmt.Errorf("create user: %w", err)
	}
	return models.ToUserDto(u), nil
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id uint, in models.UserInput) (models.UserDto, error) {
	u, err := s.Check(ctx, id)
	if err != nil {
		return models.UserDto{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return models.UserDto{}, err
		}
		if err := s.ensureEmailFree(ctx, email, u.ID); err != nil {
			return models.UserDto{}, err
		}
		u.Email = email
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.UserDto{}, emailTaken(u.Email)
		}
		return models.UserDto{}, fmt.Errorf("update user %d: %w", id, err)
	}
	return models.ToUserDto(*u), nil
}

func (s *Service) Get(ctx context.Context, id uint) (models.UserDto, error) {
	u, err := s.Check(ctx, id)
	if err != nil {
		return models.UserDto{}, err
	}
	return models.ToUserDto(*u), nil
}

func (s *Service) List(ctx context.Context) ([]models.UserDto, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]models.UserDto, 0, len(users))
	for _, u := range users {
		out = append(out, models.ToUserDto(u))
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user by ID: %d - not found", id)
	}
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", email, self).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return emailTaken(email)
	}
	return nil
}

func emailTaken(email string) error {
	return apperr.Conflict("email %s is already registered", email)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", apperr.BadRequest("invalid email %q", raw)
	}
	return email, nil
}
