package models

import (
	"tbs/src/types"
	"time"
)

// Booking is the record of a single checkout attempt and its payment
// lifecycle. PaymentOrderNo is assigned exactly once before the first outbound
// gateway call and never changes; PaymentStatus only moves forward through the
// pending -> processing -> terminal lattice. Rows are never deleted.
type Booking struct {
	ID             uint                `gorm:"primarykey" json:"id"`
	PaymentOrderNo *string             `gorm:"uniqueIndex" json:"payment_order_no,omitempty"`
	PaymentStatus  types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	TotalAmount    float64             `json:"total_amount"`
	PaidAmount     float64             `json:"paid_amount,omitempty"`
	TransactionID  *string             `json:"transaction_id,omitempty"`
	ExternalRef    *string             `gorm:"index" json:"external_ref,omitempty"`
	CustomerID     uint                `json:"customer_id,omitempty"`
	EventID        uint                `json:"event_id,omitempty"`

	CustomerNameSnapshot  string     `json:"customer_name_snapshot,omitempty"`
	CustomerEmailSnapshot string     `json:"customer_email_snapshot,omitempty"`
	EventTitleSnapshot    string     `json:"event_title_snapshot,omitempty"`
	EventDateSnapshot     *time.Time `json:"event_date_snapshot,omitempty"`
	VenueNameSnapshot     string     `json:"venue_name_snapshot,omitempty"`
	RegionNameSnapshot    string     `json:"region_name_snapshot,omitempty"`

	BookingItems types.BookingItems `gorm:"type:jsonb" json:"booking_items,omitempty"`

	Customer *Customer `gorm:"foreignKey:customer_id" json:"customer,omitempty"`
	Event    *Event    `gorm:"foreignKey:event_id" json:"event,omitempty"`
	Tickets  []Ticket  `gorm:"foreignKey:booking_id" json:"tickets,omitempty"`

	types.Timestamps
}
