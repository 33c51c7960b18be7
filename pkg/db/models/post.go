package models

import (
	"time"

	"github.com/google/uuid"
)

// Post holds the slice of the content schema the notification flows read:
// ownership for targeting and the title for message composition.
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"authorId"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"createdAt"`
}
