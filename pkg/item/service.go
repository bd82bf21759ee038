// Package item is the item catalog: items, their search, and the comments
// left by past bookers.
package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"shareit/pkg/apperr"
	"shareit/pkg/booking"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
	"shareit/pkg/user"
)

type Service struct {
	db       *gorm.DB
	users    *user.Service
	bookings *booking.Service
}

func NewService(db *gorm.DB, users *user.Service, bookings *booking.Service) *Service {
	return &Service{db: db, users: users, bookings: bookings}
}

func (s *Service) Create(ctx context.Context, ownerID uint, in models.ItemInput) (models.ItemDto, error) {
	if _, err := s.users.Check(ctx, ownerID); err != nil {
		return models.ItemDto{}, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.ItemDto{}, apperr.BadRequest("item name is empty")
	}
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		return models.ItemDto{}, apperr.BadRequest("item description is empty")
	}
	if in.Available == nil {
		return models.ItemDto{}, apperr.BadRequest("item availability is required")
	}
	if in.RequestID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ItemRequest{}).Where("id = ?", *in.RequestID).Count(&count).Error; err != nil {
			return models.ItemDto{}, fmt.Errorf("check request %d: %w", *in.RequestID, err)
		}
		if count == 0 {
			return models.ItemDto{}, apperr.NotFound("request by ID: %d - not found", *in.RequestID)
		}
	}

	it := models.Item{
		Name:        strings.TrimSpace(*in.Name),
		Description: strings.TrimSpace(*in.Description),
		Available:   *in.Available,
		OwnerID:     ownerID,
		RequestID:   in.RequestID,
	}
	if err := s.db.WithContext(ctx).Create(&it).Error; err != nil {
		return models.ItemDto{}, fmt.Errorf("create item: %w", err)
	}
	return models.ToItemDto(it), nil
}

// Update applies the non-blank fields of in. Only the owner may update.
func (s *Service) Update(ctx context.Context, itemID, actorID uint, in models.ItemInput) (models.ItemDto, error) {
	if _, err := s.users.Check(ctx, actorID); err != nil {
		return models.ItemDto{}, err
	}
	it, err := s.load(ctx, itemID)
	if err != nil {
		return models.ItemDto{}, err
	}
	if it.OwnerID != actorID {
		return models.ItemDto{}, apperr.Forbidden("user %d is not the owner of item %d", actorID, itemID)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		it.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		it.Description = strings.TrimSpace(*in.Description)
	}
	if in.Available != nil {
		it.Available = *in.Available
	}
	err = s.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", it.ID).
		Updates(map[string]interface{}{"name": it.Name, "description": it.Description, "available": it.Available}).Error
	if err != nil {
		return models.ItemDto{}, fmt.Errorf("update item %d: %w", itemID, err)
	}
	return models.ToItemDto(*it), nil
}

func (s *Service) Delete(ctx context.Context, itemID, actorID uint) error {
	it, err := s.load(ctx, itemID)
	if err != nil {
		return err
	}
	if it.OwnerID != actorID {
		return apperr.Forbidden("user %d is not the owner of item %d", actorID, itemID)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Item{}, itemID).Error; err != nil {
		return fmt.Errorf("delete item %d: %w", itemID, err)
	}
	return nil
}

// FindByID returns the item with its comments. The neighbouring bookings are
// only shown to the owner.
func (s *Service) FindByID(ctx context.Context, itemID, actorID uint) (models.ItemDetails, error) {
	if _, err := s.users.Check(ctx, actorID); err != nil {
		return models.ItemDetails{}, err
	}
	it, err := s.load(ctx, itemID)
	if err != nil {
		return models.ItemDetails{}, err
	}
	details, err := s.enrich(ctx, []models.Item{*it}, it.OwnerID == actorID)
	if err != nil {
		return models.ItemDetails{}, err
	}
	return details[0], nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uint, page *pagination.Page) ([]models.ItemDetails, error) {
	if _, err := s.users.Check(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	var items []models.Item
	err := s.db.WithContext(ctx).Scopes(pagination.Scope(page)).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list items of owner %d: %w", ownerID, err)
	}
	return s.enrich(ctx, items, true)
}

// Search matches text case-insensitively against name or description of
// available items. Blank text matches nothing.
func (s *Service) Search(ctx context.Context, text string, page *pagination.Page) ([]models.ItemDto, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.ItemDto{}, nil
	}
	pattern := "%" + strings.ToLower(text) + "%"
	var items []models.Item
	err := s.db.WithContext(ctx).Scopes(pagination.Scope(page)).
		Where("available = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	out := make([]models.ItemDto, 0, len(items))
	for _, it := range items {
		out = append(out, models.ToItemDto(it))
	}
	return out, nil
}

// PostComment stores a comment from a user who has a finished booking of
// the item.
func (s *Service) PostComment(ctx context.Context, itemID, authorID uint, in models.CommentInput) (models.CommentDto, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return models.CommentDto{}, apperr.BadRequest("comment text is empty")
	}
	author, err := s.users.Check(ctx, authorID)
	if err != nil {
		return models.CommentDto{}, err
	}
	if _, err := s.load(ctx, itemID); err != nil {
		return models.CommentDto{}, err
	}
	ok, err := s.bookings.HasFinishedBooking(ctx, itemID, authorID)
	if err != nil {
		return models.CommentDto{}, err
	}
	if !ok {
		return models.CommentDto{}, apperr.BadRequest("user %d has not booked item %d", authorID, itemID)
	}

	c := models.Comment{Text: text, ItemID: itemID, AuthorID: authorID, Created: s.bookings.Now()}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return models.CommentDto{}, fmt.Errorf("create comment: %w", err)
	}
	c.Author = *author
	return models.ToCommentDto(c), nil
}

func (s *Service) enrich(ctx context.Context, items []models.Item, withBookings bool) ([]models.ItemDetails, error) {
	out := make([]models.ItemDetails, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}

	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("Author").
		Where("item_id IN ?", ids).
		Order("created").Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	byItem := make(map[uint][]models.CommentDto, len(items))
	for _, c := range comments {
		byItem[c.ItemID] = append(byItem[c.ItemID], models.ToCommentDto(c))
	}

	var neighbours map[uint]booking.Neighbours
	if withBookings {
		if neighbours, err = s.bookings.NeighboursOf(ctx, ids...); err != nil {
			return nil, err
		}
	}

	for _, it := range items {
		d := models.ItemDetails{ItemDto: models.ToItemDto(it), Comments: byItem[it.ID]}
		if d.Comments == nil {
			d.Comments = []models.CommentDto{}
		}
		if n, ok := neighbours[it.ID]; ok {
			d.LastBooking = models.ToBookingShort(n.Last)
			d.NextBooking = models.ToBookingShort(n.Next)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Item, error) {
	var it models.Item
	if err := s.db.WithContext(ctx).First(&it, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("item by ID: %d - not found", id)
		}
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	return &it, nil
}
