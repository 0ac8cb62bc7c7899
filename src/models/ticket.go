package models

import "tbs/src/types"

// Ticket is one admission unit issued against a completed booking. The
// composite unique index makes a duplicate issuance insert fail cleanly, so a
// concurrent re-issue degrades to a no-op instead of double-issuing.
type Ticket struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	EventID       uint               `json:"event_id,omitempty"`
	EventDetailID uint               `gorm:"index:idx_ticket_issue,unique,priority:2" json:"event_detail_id,omitempty"`
	BookingID     uint               `gorm:"index:idx_ticket_issue,unique,priority:1" json:"booking_id,omitempty"`
	Seq           uint               `gorm:"index:idx_ticket_issue,unique,priority:3" json:"seq"`
	Status        types.TicketStatus `gorm:"default:'active'" json:"status,omitempty"`

	Event   Event   `json:"event,omitempty"`
	Booking Booking `json:"-"`

	types.Timestamps
}

// EventTicket is a priced seat type with its own sold count. Capacity is
// advisory in the current design; issuance does not enforce a hard ceiling.
type EventTicket struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	EventID   uint    `gorm:"index" json:"event_id,omitempty"`
	SeatType  string  `json:"seat_type,omitempty"`
	Price     float64 `json:"price"`
	Capacity  uint    `json:"capacity,omitempty"`
	SoldCount uint    `json:"sold_count"`

	Event Event `json:"-"`

	types.Timestamps
}
