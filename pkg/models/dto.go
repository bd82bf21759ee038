package models

import (
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the wire format for timestamps: local time without zone.
const DateTimeLayout = "2006-01-02T15:04:05"

type DateTime time.Time

func NewDateTime(t time.Time) DateTime { return DateTime(t) }

func (d DateTime) Time() time.Time { return time.Time(d) }

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).In(time.Local).Format(DateTimeLayout) + `"`), nil
}

// UnmarshalJSON accepts the zone-less layout (read as local time) and RFC 3339.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = DateTime{}
		return nil
	}
	t, err := time.ParseInLocation(DateTimeLayout, s, time.Local)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q, expected %s", s, DateTimeLayout)
		}
	}
	*d = DateTime(t)
	return nil
}

type UserDto struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type ItemInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
	RequestID   *uint   `json:"requestId"`
}

type ItemDto struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   *uint  `json:"requestId"`
}

type BookingShort struct {
	ID       uint     `json:"id"`
	BookerID uint     `json:"bookerId"`
	Start    DateTime `json:"start"`
	End      DateTime `json:"end"`
}

// ItemDetails is an item with its comments and, for the owner, the
// neighbouring bookings.
type ItemDetails struct {
	ItemDto
	LastBooking *BookingShort `json:"lastBooking"`
	NextBooking *BookingShort `json:"nextBooking"`
	Comments    []CommentDto  `json:"comments"`
}

type CommentInput struct {
	Text string `json:"text"`
}

type CommentDto struct {
	ID         uint     `json:"id"`
	Text       string   `json:"text"`
	AuthorName string   `json:"authorName"`
	Created    DateTime `json:"created"`
}

type BookingInput struct {
	ItemID uint      `json:"itemId"`
	Start  *DateTime `json:"start"`
	End    *DateTime `json:"end"`
}

type Ref struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type BookingDto struct {
	ID       uint          `json:"id"`
	Start    DateTime      `json:"start"`
	End      DateTime      `json:"end"`
	Status   BookingStatus `json:"status"`
	ItemID   uint          `json:"itemId"`
	BookerID uint          `json:"bookerId"`
	Item     Ref           `json:"item"`
	Booker   Ref           `json:"booker"`
}

type RequestInput struct {
	Description string `json:"description"`
}

type ItemForRequest struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   uint   `json:"requestId"`
	OwnerID     uint   `json:"ownerId"`
}

type RequestDto struct {
	ID          uint             `json:"id"`
	Description string           `json:"description"`
	RequesterID uint             `json:"requesterId"`
	Created     DateTime         `json:"created"`
	Items       []ItemForRequest `json:"items"`
}

func ToUserDto(u User) UserDto {
	return UserDto{ID: u.ID, Name: u.Name, Email: u.Email}
}

func ToItemDto(i Item) ItemDto {
	return ItemDto{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		Available:   i.Available,
		RequestID:   i.RequestID,
	}
}

// ToBookingDto expects Item and Booker to be loaded.
func ToBookingDto(b Booking) BookingDto {
	return BookingDto{
		ID:       b.ID,
		Start:    DateTime(b.Start),
		End:      DateTime(b.End),
		Status:   b.Status,
		ItemID:   b.ItemID,
		BookerID: b.BookerID,
		Item:     Ref{ID: b.Item.ID, Name: b.Item.Name},
		Booker:   Ref{ID: b.Booker.ID, Name: b.Booker.Name},
	}
}

func ToBookingShort(b *Booking) *BookingShort {
	if b == nil {
		return nil
	}
	return &BookingShort{ID: b.ID, BookerID: b.BookerID, Start: DateTime(b.Start), End: DateTime(b.End)}
}

// ToCommentDto expects Author to be loaded.
func ToCommentDto(c Comment) CommentDto {
	return CommentDto{ID: c.ID, Text: c.Text, AuthorName: c.Author.Name, Created: DateTime(c.Created)}
}

func ToRequestDto(r ItemRequest, items []Item) RequestDto {
	out := RequestDto{
		ID:          r.ID,
		Description: r.Description,
		RequesterID: r.RequesterID,
		Created:     DateTime(r.Created),
		Items:       make([]ItemForRequest, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, ItemForRequest{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Available:   it.Available,
			RequestID:   r.ID,
			OwnerID:     it.OwnerID,
		})
	}
	return out
}
