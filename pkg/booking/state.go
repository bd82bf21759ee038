package booking

import (
	"sort"
	"strings"
	"time"

	"shareit/pkg/apperr"
	"shareit/pkg/models"
)

// State selects which bookings a listing returns.
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
)

// ParseState accepts the state names case-insensitively. Empty means ALL.
func ParseState(raw string) (State, error) {
	if raw == "" {
		return StateAll, nil
	}
	s := State(strings.ToUpper(raw))
	switch s {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return s, nil
	}
	return "", apperr.BadRequest("Unknown state: %s", raw)
}

// Predicate reports whether b belongs to a state at the instant now.
type Predicate func(now time.Time, b models.Booking) bool

func isCurrent(now time.Time, b models.Booking) bool {
	return !b.Start.After(now) && !b.End.Before(now)
}

func isPast(now time.Time, b models.Booking) bool { return b.End.Before(now) }

func isFuture(now time.Time, b models.Booking) bool { return b.Start.After(now) }

func hasStatus(st models.BookingStatus) Predicate {
	return func(_ time.Time, b models.Booking) bool { return b.Status == st }
}

// Predicate returns the membership test for s. ALL and unknown states match
// every booking.
func (s State) Predicate() Predicate {
	switch s {
	case StateCurrent:
		return isCurrent
	case StatePast:
		return isPast
	case StateFuture:
		return isFuture
	case StateWaiting:
		return hasStatus(models.StatusWaiting)
	case StateRejected:
		return hasStatus(models.StatusRejected)
	default:
		return func(time.Time, models.Booking) bool { return true }
	}
}

// Filter keeps the bookings matching s and orders them by start, newest
// first. Ties keep the higher id first.
func Filter(s State, now time.Time, all []models.Booking) []models.Booking {
	keep := s.Predicate()
	out := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if keep(now, b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID > out[j].ID
		}
		return out[i].Start.After(out[j].Start)
	})
	return out
}
