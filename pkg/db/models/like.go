package models

import (
	"time"

	"github.com/google/uuid"
)

// Like records one user liking one post; (user_id, post_id) is unique.
type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post" json:"userId"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post" json:"postId"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"createdAt"`
}
