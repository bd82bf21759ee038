// Package request is the request board: users describe items they would like
// to borrow and other users answer by listing items against the request.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"shareit/pkg/apperr"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
	"shareit/pkg/user"
)

type Service struct {
	db    *gorm.DB
	users *user.Service
	now   func() time.Time
}

func NewService(db *gorm.DB, users *user.Service) *Service {
	return &Service{db: db, users: users, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Create(ctx context.Context, requesterID uint, in models.RequestInput) (models.RequestDto, error) {
	if _, err := s.users.Check(ctx, requesterID); err != nil {
		return models.RequestDto{}, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return models.RequestDto{}, apperr.BadRequest("request description is empty")
	}
	r := models.ItemRequest{Description: description, RequesterID: requesterID, Created: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return models.RequestDto{}, fmt.Errorf("create request: %w", err)
	}
	return models.ToRequestDto(r, nil), nil
}

// ListOwn returns the caller's requests, newest first.
func (s *Service) ListOwn(ctx context.Context, userID uint, page *pagination.Page) ([]models.RequestDto, error) {
	return s.list(ctx, userID, page, "requester_id = ?")
}

// ListOthers returns everyone else's requests, newest first.
func (s *Service) ListOthers(ctx context.Context, userID uint, page *pagination.Page) ([]models.RequestDto, error) {
	return s.list(ctx, userID, page, "requester_id <> ?")
}

func (s *Service) list(ctx context.Context, userID uint, page *pagination.Page, cond string) ([]models.RequestDto, error) {
	if _, err := s.users.Check(ctx, userID); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	var rows []models.ItemRequest
	err := s.db.WithContext(ctx).Scopes(pagination.Scope(page)).
		Where(cond, userID).
		Order("created DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return s.withItems(ctx, rows)
}

func (s *Service) GetByID(ctx context.Context, requestID, actorID uint) (models.RequestDto, error) {
	if _, err := s.users.Check(ctx, actorID); err != nil {
		return models.RequestDto{}, err
	}
	var r models.ItemRequest
	if err := s.db.WithContext(ctx).First(&r, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RequestDto{}, apperr.NotFound("request by ID: %d - not found", requestID)
		}
		return models.RequestDto{}, fmt.Errorf("load request %d: %w", requestID, err)
	}
	out, err := s.withItems(ctx, []models.ItemRequest{r})
	if err != nil {
		return models.RequestDto{}, err
	}
	return out[0], nil
}

// withItems attaches the answering items to each request, highest item id
// first.
func (s *Service) withItems(ctx context.Context, rows []models.ItemRequest) ([]models.RequestDto, error) {
	out := make([]models.RequestDto, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var items []models.Item
	if err := s.db.WithContext(ctx).Where("request_id IN ?", ids).Order("id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load items for requests: %w", err)
	}
	byRequest := make(map[uint][]models.Item, len(rows))
	for _, it := range items {
		byRequest[*it.RequestID] = append(byRequest[*it.RequestID], it)
	}
	for _, r := range rows {
		out = append(out, models.ToRequestDto(r, byRequest[r.ID]))
	}
	return out, nil
}
