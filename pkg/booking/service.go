// Package booking implements the booking workflow: creation, the owner's
// decision, cancellation by the booker, and the state-filtered listings.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"shareit/pkg/apperr"
	"shareit/pkg/events"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
	"shareit/pkg/user"
)

type Service struct {
	db     *gorm.DB
	users  *user.Service
	events events.Publisher
	now    func() time.Time
}

func NewService(db *gorm.DB, users *user.Service, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{db: db, users: users, events: pub, now: time.Now}
}

// SetClock replaces the time source used for window checks and state filters.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Now() time.Time { return s.now().UTC() }

func (s *Service) Create(ctx context.Context, bookerID uint, in models.BookingInput) (models.BookingDto, error) {
	if _, err := s.users.Check(ctx, bookerID); err != nil {
		return models.BookingDto{}, err
	}
	if in.Start == nil || in.End == nil {
		return models.BookingDto{}, apperr.BadRequest("booking start and end are required")
	}
	start, end := in.Start.Time().UTC(), in.End.Time().UTC()
	if start.Before(s.Now()) || !start.Before(end) {
		return models.BookingDto{}, apperr.WrongTimeRange()
	}

	var it models.Item
	if err := s.db.WithContext(ctx).First(&it, in.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.BookingDto{}, apperr.NotFound("item by ID: %d - not found", in.ItemID)
		}
		return models.BookingDto{}, fmt.Errorf("load item %d: %w", in.ItemID, err)
	}
	if it.OwnerID == bookerID {
		return models.BookingDto{}, apperr.Forbidden("owner cannot book own item %d", it.ID)
	}
	if !it.Available {
		return models.BookingDto{}, apperr.BadRequest("item %d is not available", it.ID)
	}

	b := models.Booking{
		Start:    start,
		End:      end,
		ItemID:   it.ID,
		BookerID: bookerID,
		Status:   models.StatusWaiting,
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return models.BookingDto{}, fmt.Errorf("create booking: %w", err)
	}
	loaded, err := s.load(ctx, b.ID)
	if err != nil {
		return models.BookingDto{}, err
	}
	s.events.Publish(ctx, events.ForBooking(*loaded, s.Now()))
	return models.ToBookingDto(*loaded), nil
}

// Decide moves a WAITING booking to APPROVED or REJECTED. Only the item's
// owner may decide, and only once: the status update is conditional on the
// row still being WAITING.
func (s *Service) Decide(ctx context.Context, bookingID, actorID uint, approve bool) (models.BookingDto, error) {
	if _, err := s.users.Check(ctx, actorID); err != nil {
		return models.BookingDto{}, err
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return models.BookingDto{}, err
	}
	if b.Item.OwnerID != actorID {
		return models.BookingDto{}, apperr.Forbidden("user %d is not the owner of item %d", actorID, b.ItemID)
	}

	next := models.StatusRejected
	if approve {
		next = models.StatusApproved
	}
	if err := s.transition(ctx, b, models.StatusWaiting, next); err != nil {
		return models.BookingDto{}, err
	}
	slog.Info("booking decided", "booking_id", b.ID, "status", next, "owner_id", actorID)
	return models.ToBookingDto(*b), nil
}

// Cancel lets the booker withdraw a WAITING or APPROVED booking that has not
// started yet.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID uint) (models.BookingDto, error) {
	if _, err := s.users.Check(ctx, actorID); err != nil {
		return models.BookingDto{}, err
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return models.BookingDto{}, err
	}
	if b.BookerID != actorID {
		return models.BookingDto{}, apperr.Forbidden("user %d is not the booker of booking %d", actorID, b.ID)
	}
	if b.Status != models.StatusWaiting && b.Status != models.StatusApproved {
		return models.BookingDto{}, apperr.InvalidState("booking %d is %s and cannot be canceled", b.ID, b.Status)
	}
	if !b.Start.After(s.Now()) {
		return models.BookingDto{}, apperr.InvalidState("booking %d has already started", b.ID)
	}
	if err := s.transition(ctx, b, b.Status, models.StatusCanceled); err != nil {
		return models.BookingDto{}, err
	}
	slog.Info("booking canceled", "booking_id", b.ID, "booker_id", actorID)
	return models.ToBookingDto(*b), nil
}

// transition sets b's status to next if the stored status is still from.
func (s *Service) transition(ctx context.Context, b *models.Booking, from, next models.BookingStatus) error {
	if b.Status != from {
		return apperr.InvalidState("booking %d is already %s", b.ID, b.Status)
	}
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", b.ID, from).
		Update("status", next)
	if res.Error != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.InvalidState("booking %d is no longer %s", b.ID, from)
	}
	b.Status = next
	s.events.Publish(ctx, events.ForBooking(*b, s.Now()))
	return nil
}

// Get returns a booking to its booker or to the item's owner.
func (s *Service) Get(ctx context.Context, bookingID, actorID uint) (models.BookingDto, error) {
	if _, err := s.users.Check(ctx, actorID); err != nil {
		return models.BookingDto{}, err
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return models.BookingDto{}, err
	}
	if b.BookerID != actorID && b.Item.OwnerID != actorID {
		return models.BookingDto{}, apperr.Forbidden("user %d cannot view booking %d", actorID, b.ID)
	}
	return models.ToBookingDto(*b), nil
}

func (s *Service) ListByBooker(ctx context.Context, bookerID uint, state State, page *pagination.Page) ([]models.BookingDto, error) {
	if _, err := s.users.Check(ctx, bookerID); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	var rows []models.Booking
	err := s.db.WithContext(ctx).Preload("Item").Preload("Booker").
		Where("booker_id = ?", bookerID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings of booker %d: %w", bookerID, err)
	}
	return s.present(state, page, rows), nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uint, state State, page *pagination.Page) ([]models.BookingDto, error) {
	if _, err := s.users.Check(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	owned := s.db.Model(&models.Item{}).Select("id").Where("owner_id = ?", ownerID)
	var rows []models.Booking
	err := s.db.WithContext(ctx).Preload("Item").Preload("Booker").
		Where("item_id IN (?)", owned).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings of owner %d: %w", ownerID, err)
	}
	return s.present(state, page, rows), nil
}

func (s *Service) present(state State, page *pagination.Page, rows []models.Booking) []models.BookingDto {
	selected := pagination.Slice(page, Filter(state, s.Now(), rows))
	out := make([]models.BookingDto, 0, len(selected))
	for _, b := range selected {
		out = append(out, models.ToBookingDto(b))
	}
	return out
}

// Neighbours are the bookings closest to now on either side.
type Neighbours struct {
	Last *models.Booking
	Next *models.Booking
}

// NeighboursOf computes, for each item, the latest booking that has ended
// and the earliest booking that has not started. Rejected and canceled
// bookings are ignored.
func (s *Service) NeighboursOf(ctx context.Context, itemIDs ...uint) (map[uint]Neighbours, error) {
	out := make(map[uint]Neighbours, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []models.Booking
	err := s.db.WithContext(ctx).
		Where("item_id IN ? AND status NOT IN ?", itemIDs,
			[]models.BookingStatus{models.StatusRejected, models.StatusCanceled}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load bookings of items: %w", err)
	}

	now := s.Now()
	for i := range rows {
		b := &rows[i]
		n := out[b.ItemID]
		if isPast(now, *b) && (n.Last == nil || b.End.After(n.Last.End)) {
			n.Last = b
		}
		if isFuture(now, *b) && (n.Next == nil || b.Start.Before(n.Next.Start)) {
			n.Next = b
		}
		out[b.ItemID] = n
	}
	return out, nil
}

// HasFinishedBooking reports whether userID has a booking of itemID that
// already ended and was not rejected or canceled.
func (s *Service) HasFinishedBooking(ctx context.Context, itemID, userID uint) (bool, error) {
	var rows []models.Booking
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND booker_id = ? AND status NOT IN ?", itemID, userID,
			[]models.BookingStatus{models.StatusRejected, models.StatusCanceled}).
		Find(&rows).Error
	if err != nil {
		return false, fmt.Errorf("load bookings of user %d: %w", userID, err)
	}
	now := s.Now()
	for _, b := range rows {
		if isPast(now, b) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).Preload("Item").Preload("Booker").First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("booking by ID: %d - not found", id)
		}
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	return &b, nil
}
