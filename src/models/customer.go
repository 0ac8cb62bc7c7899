package models

import "tbs/src/types"

// Customer rows are created once per booking intake; no dedup by email.
type Customer struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	types.Timestamps
}
