package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is one rating submission. Votes are never updated once written.
//
// DedupeKey backs the unique index on (entry_id, dedupe_key). It carries the
// session id for validated votes and a unique key for privileged votes.
type Vote struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	EntryID            string    `gorm:"size:36;not null;uniqueIndex:idx_votes_entry_dedupe,priority:1;index:idx_votes_entry_session,priority:1;index:idx_votes_entry_fingerprint,priority:1;index:idx_votes_entry_ip,priority:1" json:"entry_id"`
	OverallRating      int       `gorm:"not null" json:"overall_rating"`
	TasteRating        int       `gorm:"not null" json:"taste_rating"`
	PresentationRating int       `gorm:"not null" json:"presentation_rating"`
	CreativityRating   int       `gorm:"not null" json:"creativity_rating"`
	SpiceBalanceRating int       `gorm:"not null" json:"spice_balance_rating"`
	Comments           string    `gorm:"size:500" json:"comments,omitempty"`
	SessionID          string    `gorm:"size:128;not null;index:idx_votes_entry_session,priority:2" json:"session_id"`
	DeviceFingerprint  string    `gorm:"size:128;index:idx_votes_entry_fingerprint,priority:2" json:"device_fingerprint,omitempty"`
	IPAddress          string    `gorm:"size:64;index:idx_votes_entry_ip,priority:2" json:"ip_address,omitempty"`
	DedupeKey          string    `gorm:"size:200;not null;uniqueIndex:idx_votes_entry_dedupe,priority:2" json:"-"`
	Bypassed           bool      `gorm:"not null" json:"bypassed"`
	CreatedAt          time.Time `gorm:"index:idx_votes_entry_ip,priority:3" json:"created_at"`
}

// BeforeCreate assigns a uuid when the caller did not set one.
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// CategoryRatings are the four secondary ratings of a submission.
type CategoryRatings struct {
	Taste        int `json:"taste"`
	Presentation int `json:"presentation"`
	Creativity   int `json:"creativity"`
	SpiceBalance int `json:"spice_balance"`
}

// VoteSubmission is what crosses into the vote core. The HTTP layer fills the
// identity fields; optional ones are empty when unknown.
type VoteSubmission struct {
	EntryID           string          `json:"entry_id"`
	OverallRating     int             `json:"overall_rating"`
	CategoryRatings   CategoryRatings `json:"category_ratings"`
	Comments          string          `json:"comments,omitempty"`
	SessionID         string          `json:"session_id"`
	DeviceFingerprint string          `json:"device_fingerprint,omitempty"`
	IPAddress         string          `json:"ip_address,omitempty"`
}

// VoteResult is returned for every submission that reached the validator.
type VoteResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
