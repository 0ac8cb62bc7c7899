package models

import (
	"tbs/src/types"
	"time"
)

type Event struct {
	ID       uint              `gorm:"primarykey" json:"id"`
	Title    string            `json:"title,omitempty"`
	DateTime *time.Time        `json:"date_time,omitempty"`
	Status   types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`
	VenueID  uint              `json:"venue_id,omitempty"`

	Venue        Venue         `json:"venue,omitempty"`
	EventTickets []EventTicket `json:"event_tickets,omitempty"`

	types.Timestamps
}

type Venue struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `json:"name,omitempty"`
	RegionID uint   `json:"region_id,omitempty"`

	Region Region `json:"region,omitempty"`

	types.Timestamps
}

type Region struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `json:"name,omitempty"`

	types.Timestamps
}
