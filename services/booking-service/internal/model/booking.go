package model

import (
	"encoding/json"
	"time"
)

const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

type Booking struct {
	ID                 string
	UID                string
	EventTypeID        string
	OrganizerUserID    string
	Title              string
	Description        string
	StartTime          time.Time
	EndTime            time.Time
	Location           string
	Status             string
	Paid               bool
	CancelReason       string
	RescheduledFromUID string
	SeatsPerTimeSlot   int
	Metadata           json.RawMessage
	Responses          json.RawMessage
	CreatedAt          time.Time
	CancelledAt        *time.Time
	Attendees          []Attendee
}

type Attendee struct {
	ID          int64
	BookingID   string
	Email       string
	Name        string
	TimeZone    string
	Locale      string
	PhoneNumber string
	NoShow      bool
}

// Live reports whether the booking still occupies its slot.
func (b Booking) Live() bool {
	return b.Status == StatusPending || b.Status == StatusAccepted
}
