package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avelarsoto/communa-backend/internal/realtime"
	"github.com/avelarsoto/communa-backend/pkg/db/models"
	"github.com/avelarsoto/communa-backend/pkg/enums"
	pkgerrors "github.com/avelarsoto/communa-backend/pkg/errors"
	"github.com/avelarsoto/communa-backend/pkg/logger"
	"github.com/avelarsoto/communa-backend/pkg/pagination"
)

const unknownSenderName = "Unknown user"

// Pusher delivers an event to the live connections of one user.
type Pusher interface {
	SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error
}

// UserGetter resolves the sender profile for display names.
type UserGetter interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Service orchestrates notification persistence and realtime fan-out.
// Persistence is the source of truth; the push is best effort and its
// failures never surface to the producing flow.
type Service interface {
	NotifyLike(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error)
	NotifyComment(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error)
	NotifyPostApproved(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error)
	NotifyPostRejected(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error)
	RetractLike(ctx context.Context, ownerID, senderID, entityID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo   Repository
	users  UserGetter
	pusher Pusher
	logg   *logger.Logger
}

// ListResult wraps one page of notifications and its page metadata.
type ListResult struct {
	Items []models.Notification `json:"items"`
	Meta  pagination.Meta       `json:"meta"`
}

type pushedNotification struct {
	ID         uuid.UUID              `json:"id"`
	Type       enums.NotificationType `json:"type"`
	SenderID   uuid.UUID              `json:"senderId"`
	SenderName string                 `json:"senderName"`
	EntityID   uuid.UUID              `json:"entityId"`
	Message    string                 `json:"message"`
	CreatedAt  time.Time              `json:"createdAt"`
}

type deletedNotification struct {
	Type     enums.NotificationType `json:"type"`
	SenderID uuid.UUID              `json:"senderId"`
	EntityID uuid.UUID              `json:"entityId"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, users UserGetter, pusher Pusher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users lookup required")
	}
	if pusher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime pusher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, users: users, pusher: pusher, logg: logg}, nil
}

var messageTemplates = map[enums.NotificationType]string{
	enums.NotificationTypeLike:         `liked your post: "%s"`,
	enums.NotificationTypeComment:      `commented on your post: "%s"`,
	enums.NotificationTypePostApproved: `approved your post: "%s"`,
	enums.NotificationTypePostRejected: `rejected your post: "%s"`,
}

func (s *service) NotifyLike(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error) {
	return s.emit(ctx, ownerID, senderID, enums.NotificationTypeLike, post)
}

func (s *service) NotifyComment(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error) {
	return s.emit(ctx, ownerID, senderID, enums.NotificationTypeComment, post)
}

func (s *service) NotifyPostApproved(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error) {
	return s.emit(ctx, ownerID, senderID, enums.NotificationTypePostApproved, post)
}

func (s *service) NotifyPostRejected(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error) {
	return s.emit(ctx, ownerID, senderID, enums.NotificationTypePostRejected, post)
}

func (s *service) emit(ctx context.Context, ownerID, senderID uuid.UUID, notificationType enums.NotificationType, post *models.Post) (*models.Notification, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if senderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender id required")
	}
	if post == nil || post.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post required")
	}
	template, ok := messageTemplates[notificationType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported notification type %q", notificationType))
	}

	notification := &models.Notification{
		UserID:   ownerID,
		SenderID: senderID,
		Type:     notificationType,
		EntityID: post.ID,
		Message:  fmt.Sprintf(template, post.Title),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	s.push(ctx, ownerID, realtime.EventNotification, pushedNotification{
		ID:         notification.ID,
		Type:       notification.Type,
		SenderID:   notification.SenderID,
		SenderName: s.senderName(ctx, senderID),
		EntityID:   notification.EntityID,
		Message:    notification.Message,
		CreatedAt:  notification.CreatedAt,
	})

	return notification, nil
}

// RetractLike removes the stored like notification for (owner, sender, entity)
// and tells live clients to drop it. Nothing stored means nothing to do.
func (s *service) RetractLike(ctx context.Context, ownerID, senderID, entityID uuid.UUID) error {
	if ownerID == uuid.Nil || senderID == uuid.Nil || entityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner, sender and entity ids required")
	}

	notification, err := s.repo.FindByEvent(ctx, eventLookupParams{
		UserID:   ownerID,
		SenderID: senderID,
		EntityID: entityID,
		Type:     enums.NotificationTypeLike,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find like notification")
	}
	if notification == nil {
		return nil
	}

	if err := s.repo.Delete(ctx, notification.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete like notification")
	}

	s.push(ctx, ownerID, realtime.EventNotificationDeleted, deletedNotification{
		Type:     notification.Type,
		SenderID: notification.SenderID,
		EntityID: notification.EntityID,
	})

	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	params = pagination.Normalize(params)
	items, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}

	return &ListResult{
		Items: items,
		Meta:  pagination.NewMeta(total, params),
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}

	notification, err := s.repo.GetByID(ctx, userID, notificationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if notification == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return notification, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) senderName(ctx context.Context, senderID uuid.UUID) string {
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, senderID.String()), "sender lookup failed")
		return unknownSenderName
	}
	if sender == nil || sender.Username == "" {
		return unknownSenderName
	}
	return sender.Username
}

func (s *service) push(ctx context.Context, userID uuid.UUID, event string, payload any) {
	if err := s.pusher.SendToUser(ctx, userID, event, payload); err != nil {
		fields := map[string]any{"event": event, "recipient": userID.String()}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "realtime push failed")
	}
}
