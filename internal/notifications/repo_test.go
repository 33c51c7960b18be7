package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avelarsoto/communa-backend/pkg/db/models"
	"github.com/avelarsoto/communa-backend/pkg/enums"
	"github.com/avelarsoto/communa-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Notification{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{ID: uuid.New(), Username: username, Email: username + "@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedNotification(t *testing.T, db *gorm.DB, userID, senderID uuid.UUID, notificationType enums.NotificationType, createdAt time.Time) models.Notification {
	t.Helper()
	notification := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		SenderID:  senderID,
		Type:      notificationType,
		EntityID:  uuid.New(),
		Message:   "seeded",
		CreatedAt: createdAt,
	}
	if err := db.Create(&notification).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return notification
}

func TestRepositoryListByUserOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")
	other := seedUser(t, db, "other")

	now := time.Now().UTC()
	old := seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeLike, now.Add(-time.Hour))
	fresh := seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeComment, now)
	seedNotification(t, db, other.ID, sender.ID, enums.NotificationTypeLike, now)

	items, total, err := repo.ListByUser(ctx, recipient.ID, pagination.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != fresh.ID || items[1].ID != old.ID {
		t.Fatal("expected newest-first ordering")
	}
	if items[0].Sender == nil || items[0].Sender.Username != "sender" {
		t.Fatal("expected sender preloaded")
	}
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeLike, now.Add(time.Duration(i)*time.Minute))
	}

	items, total, err := repo.ListByUser(ctx, recipient.ID, pagination.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item on page 2, got %d", len(items))
	}
}

func TestRepositoryCountUnread(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")

	now := time.Now().UTC()
	first := seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeLike, now)
	seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeComment, now)

	count, err := repo.CountUnread(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	if _, err := repo.MarkRead(ctx, recipient.ID, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	count, err = repo.CountUnread(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread, got %d", count)
	}
}

func TestRepositoryMarkReadScopes(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")
	stranger := seedUser(t, db, "stranger")

	notification := seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeLike, time.Now().UTC())

	// Another user cannot mark it.
	mark, err := repo.MarkRead(ctx, stranger.ID, notification.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if mark.Found || mark.Updated {
		t.Fatal("expected foreign notification to be invisible")
	}

	mark, err = repo.MarkRead(ctx, recipient.ID, notification.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !mark.Found || !mark.Updated {
		t.Fatal("expected owner mark to update")
	}

	// Already read: found but not updated.
	mark, err = repo.MarkRead(ctx, recipient.ID, notification.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !mark.Found || mark.Updated {
		t.Fatalf("expected found=true updated=false, got %+v", mark)
	}
}

func TestRepositoryMarkAllRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")

	now := time.Now().UTC()
	seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeLike, now)
	seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeComment, now)

	count, err := repo.MarkAllRead(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows updated, got %d", count)
	}

	count, err = repo.MarkAllRead(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("mark all read again: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows on second pass, got %d", count)
	}
}

func TestRepositoryFindByEventPicksOldestMatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")

	entityID := uuid.New()
	now := time.Now().UTC()

	oldest := models.Notification{
		ID:        uuid.New(),
		UserID:    recipient.ID,
		SenderID:  sender.ID,
		Type:      enums.NotificationTypeLike,
		EntityID:  entityID,
		Message:   "first",
		CreatedAt: now.Add(-time.Hour),
	}
	newest := oldest
	newest.ID = uuid.New()
	newest.Message = "second"
	newest.CreatedAt = now
	for _, n := range []models.Notification{oldest, newest} {
		row := n
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	found, err := repo.FindByEvent(ctx, eventLookupParams{
		UserID:   recipient.ID,
		SenderID: sender.ID,
		EntityID: entityID,
		Type:     enums.NotificationTypeLike,
	})
	if err != nil {
		t.Fatalf("find by event: %v", err)
	}
	if found == nil {
		t.Fatal("expected a match")
	}
	if found.ID != oldest.ID {
		t.Fatal("expected the oldest matching notification")
	}
}

func TestRepositoryFindByEventMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	found, err := repo.FindByEvent(context.Background(), eventLookupParams{
		UserID:   uuid.New(),
		SenderID: uuid.New(),
		EntityID: uuid.New(),
		Type:     enums.NotificationTypeLike,
	})
	if err != nil {
		t.Fatalf("find by event: %v", err)
	}
	if found != nil {
		t.Fatal("expected nil for no match")
	}
}

func TestRepositoryDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := seedUser(t, db, "recipient")
	sender := seedUser(t, db, "sender")
	notification := seedNotification(t, db, recipient.ID, sender.ID, enums.NotificationTypeLike, time.Now().UTC())

	if err := repo.Delete(ctx, notification.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := repo.GetByID(ctx, recipient.ID, notification.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Fatal("expected notification gone")
	}
}
