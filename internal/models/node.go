package models

import (
	"time"
)

// Node persists one top-level subtree of the document store as JSON.
type Node struct {
	Root      string `gorm:"primaryKey"`
	Body      string
	UpdatedAt time.Time
}
