package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the profile fields the notification feed needs; credential
// management lives outside this service.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string    `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email     string    `gorm:"type:text;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"createdAt"`
}
