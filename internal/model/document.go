package model

import "time"

// Document records one uploaded file and how many chunks it produced.
type Document struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
