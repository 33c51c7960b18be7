package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelarsoto/communa-backend/pkg/enums"
)

// Notification is the durable record behind the realtime feed. UserID is the
// recipient, SenderID the actor whose action produced the event, EntityID the
// subject (the post in every current variant). Message is composed once at
// creation time and never recomputed.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"userId"`
	SenderID  uuid.UUID              `gorm:"type:uuid;not null" json:"senderId"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	EntityID  uuid.UUID              `gorm:"type:uuid;not null" json:"entityId"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Read      bool                   `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()" json:"createdAt"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
