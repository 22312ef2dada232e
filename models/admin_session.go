package models

import "time"

// AdminSession is a privileged session token persisted when Redis is not available.
type AdminSession struct {
	Token     string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
