package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry is a chili submitted to the cook-off. The aggregate fields are written
// only by the statistics recompute.
type Entry struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	ChefName      string    `gorm:"size:200;not null" json:"chef_name"`
	Description   string    `gorm:"type:text" json:"description"`
	Ingredients   string    `gorm:"type:text" json:"ingredients"`
	VoteCount     int64     `gorm:"not null;default:0" json:"vote_count"`
	TotalScore    int64     `gorm:"not null;default:0" json:"total_score"`
	AverageRating float64   `gorm:"not null;default:0" json:"average_rating"`
	Votes         []Vote    `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeCreate assigns a uuid when the caller did not set one.
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// EntryStats is the aggregate triple derived from an entry's votes.
type EntryStats struct {
	VoteCount     int64   `json:"vote_count"`
	TotalScore    int64   `json:"total_score"`
	AverageRating float64 `json:"average_rating"`
}

// Stats returns the aggregate fields of e.
func (e Entry) Stats() EntryStats {
	return EntryStats{
		VoteCount:     e.VoteCount,
		TotalScore:    e.TotalScore,
		AverageRating: e.AverageRating,
	}
}

// EntryInput is the writable part of an entry, used by admin and webhook intake.
type EntryInput struct {
	Name        string `json:"name" binding:"required,max=200"`
	ChefName    string `json:"chef_name" binding:"required,max=200"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
}
