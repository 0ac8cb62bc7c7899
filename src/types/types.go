package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// BookingItem is one seat-type line of a booking, captured at checkout time so
// reconciliation never re-joins mutable event tables.
type BookingItem struct {
	SeatType      string  `json:"seat_type"`
	Quantity      uint    `json:"quantity"`
	PricePaid     float64 `json:"price_paid"`
	CostAtBooking float64 `json:"cost_at_booking"`
}

type BookingItems []BookingItem

func (a BookingItems) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *BookingItems) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// SeatList is the intake-side shape of booking line items. Partner callers send
// it either as a JSON array or as a JSON-encoded string; both decode to the
// same slice here so nothing deeper in the pipeline has to care.
type SeatList []BookingItem

func (s *SeatList) UnmarshalJSON(data []byte) error {
	var items []BookingItem
	if err := json.Unmarshal(data, &items); err == nil {
		*s = items
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return errors.New("seats must be an array or a JSON-encoded string")
	}
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		return err
	}
	*s = items
	return nil
}

// ParseSeatList decodes the query-string form of the seats field.
func ParseSeatList(raw string) (SeatList, error) {
	if raw == "" {
		return nil, errors.New("seats is required")
	}
	var items SeatList
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

type PaymentStatus string

const (
	PAYMENT_PENDING    PaymentStatus = "pending"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_COMPLETED  PaymentStatus = "completed"
	PAYMENT_FAILED     PaymentStatus = "failed"
	PAYMENT_CANCELED   PaymentStatus = "cancelled"
)

// TerminalPaymentStatuses is the set a booking can never leave.
var TerminalPaymentStatuses = []PaymentStatus{
	PAYMENT_COMPLETED,
	PAYMENT_FAILED,
	PAYMENT_CANCELED,
}

func (s PaymentStatus) Terminal() bool {
	for _, t := range TerminalPaymentStatuses {
		if s == t {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PAYMENT_PENDING, PAYMENT_PROCESSING, PAYMENT_COMPLETED, PAYMENT_FAILED, PAYMENT_CANCELED:
		return true
	}
	return false
}

type TicketStatus string

const (
	TICKET_ACTIVE    TicketStatus = "active"
	TICKET_USED      TicketStatus = "used"
	TICKET_CANCELLED TicketStatus = "cancelled"
)

type EventStatus string

const (
	EVENT_DRAFT     EventStatus = "draft"
	EVENT_PUBLISHED EventStatus = "published"
	EVENT_ARCHIVED  EventStatus = "archived"
)

// Gateway notification status literals. Success requires both the status and
// code fields to agree; user cancellation has its own literal and is never
// inferred from a generic failure.
const (
	GATEWAY_STATUS_SUCCESS  = "1"
	GATEWAY_STATUS_FAILED   = "0"
	GATEWAY_STATUS_CANCELED = "2"
	GATEWAY_CODE_SUCCESS    = 200
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CheckoutCustomer struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone,omitempty"`
}

type CreateCheckoutRequestBody struct {
	EventID  uint             `json:"event_id" binding:"required"`
	Customer CheckoutCustomer `json:"customer" binding:"required"`
	Items    SeatList         `json:"items" binding:"required,min=1,dive"`
	Amount   float64          `json:"amount" binding:"required,gt=0"`
}

// ExternalBookingRequestBody is the JSON POST shape of the bulk intake
// endpoint. GET callers submit the same fields as query parameters with seats
// JSON-encoded; see ExternalBookingQuery.
type ExternalBookingRequestBody struct {
	BookingID    string   `json:"bookingId" binding:"required"`
	Amount       float64  `json:"amount" binding:"required,gt=0"`
	CustomerName string   `json:"customerName" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Phone        string   `json:"phone,omitempty"`
	Seats        SeatList `json:"seats" binding:"required,min=1"`
	EventID      uint     `json:"eventId,omitempty"`
	EventTitle   string   `json:"eventTitle,omitempty"`
	EventDate    string   `json:"eventDate,omitempty"`
	VenueID      uint     `json:"venueId,omitempty"`
	VenueName    string   `json:"venueName,omitempty"`
	RegionName   string   `json:"regionName,omitempty"`
}

type ExternalBookingQuery struct {
	BookingID    string  `form:"bookingId" binding:"required"`
	Amount       float64 `form:"amount" binding:"required,gt=0"`
	CustomerName string  `form:"customerName" binding:"required"`
	Email        string  `form:"email" binding:"required,email"`
	Phone        string  `form:"phone"`
	Seats        string  `form:"seats" binding:"required"`
	EventID      uint    `form:"eventId"`
	EventTitle   string  `form:"eventTitle"`
	EventDate    string  `form:"eventDate"`
	VenueID      uint    `form:"venueId"`
	VenueName    string  `form:"venueName"`
	RegionName   string  `form:"regionName"`
}

type PaymentReturnQuery struct {
	Status        string  `form:"Status"`
	Code          int     `form:"Code"`
	Message       string  `form:"Message"`
	TransactionId string  `form:"TransactionId"`
	Amount        float64 `form:"Amount"`
	OrderNo       string  `form:"OrderNo"`
	BookingID     uint    `form:"bookingId"`
}

type OverrideStatusRequestBody struct {
	Status PaymentStatus `json:"status" binding:"required"`
	Reason string        `json:"reason,omitempty"`
}
