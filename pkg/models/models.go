// Package models holds the gorm entities of shareit and their JSON views.
package models

import (
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
	StatusCanceled BookingStatus = "CANCELED"
)

type User struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:255;not null"`
	Email string `gorm:"size:512;not null;uniqueIndex"`
}

type ItemRequest struct {
	ID          uint      `gorm:"primaryKey"`
	Description string    `gorm:"size:1024;not null"`
	RequesterID uint      `gorm:"not null;index"`
	Created     time.Time `gorm:"not null;index"`

	Requester User `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE"`
}

type Item struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"size:1024;not null"`
	Available   bool   `gorm:"not null"`
	OwnerID     uint   `gorm:"not null;index"`
	RequestID   *uint  `gorm:"index"`

	Owner   User         `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Request *ItemRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:SET NULL"`
}

// Booking columns are start_date/end_date because "end" is reserved in postgres.
type Booking struct {
	ID       uint          `gorm:"primaryKey"`
	Start    time.Time     `gorm:"column:start_date;not null;index"`
	End      time.Time     `gorm:"column:end_date;not null"`
	ItemID   uint          `gorm:"not null;index"`
	BookerID uint          `gorm:"not null;index"`
	Status   BookingStatus `gorm:"size:20;not null"`

	Item   Item `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Booker User `gorm:"foreignKey:BookerID;constraint:OnDelete:CASCADE"`
}

type Comment struct {
	ID       uint      `gorm:"primaryKey"`
	Text     string    `gorm:"size:2048;not null"`
	ItemID   uint      `gorm:"not null;index"`
	AuthorID uint      `gorm:"not null;index"`
	Created  time.Time `gorm:"not null"`

	Item   Item `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// All lists the entities in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &ItemRequest{}, &Item{}, &Booking{}, &Comment{}}
}
