package likes

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/avelarsoto/communa-backend/pkg/db/models"
	pkgerrors "github.com/avelarsoto/communa-backend/pkg/errors"
	"github.com/avelarsoto/communa-backend/pkg/logger"
)

type fakeRepo struct {
	existing *models.Like
	created  *models.Like
	deleted  uuid.UUID
	count    int64

	findErr   error
	createErr error
}

func (f *fakeRepo) Find(ctx context.Context, userID, postID uuid.UUID) (*models.Like, error) {
	return f.existing, f.findErr
}

func (f *fakeRepo) Create(ctx context.Context, like *models.Like) error {
	if f.createErr != nil {
		return f.createErr
	}
	like.ID = uuid.New()
	f.created = like
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, likeID uuid.UUID) error {
	f.deleted = likeID
	return nil
}

func (f *fakeRepo) CountForPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	return f.count, nil
}

type fakePosts struct {
	post *models.Post
	err  error
}

func (f *fakePosts) GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	return f.post, f.err
}

type fakeNotifier struct {
	notified  int
	retracted int
	err       error
}

func (f *fakeNotifier) NotifyLike(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error) {
	f.notified++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: uuid.New()}, nil
}

func (f *fakeNotifier) RetractLike(ctx context.Context, ownerID, senderID, entityID uuid.UUID) error {
	f.retracted++
	return f.err
}

func newServiceForTest(t *testing.T, repo Repository, posts PostGetter, notifier Notifier) Service {
	t.Helper()
	svc, err := NewService(repo, posts, notifier, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestToggleLikesAndNotifies(t *testing.T) {
	userID := uuid.New()
	authorID := uuid.New()
	post := &models.Post{ID: uuid.New(), AuthorID: authorID, Title: "Post"}

	repo := &fakeRepo{count: 1}
	notifier := &fakeNotifier{}
	svc := newServiceForTest(t, repo, &fakePosts{post: post}, notifier)

	result, err := svc.Toggle(context.Background(), userID, post.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !result.Liked {
		t.Fatal("expected liked=true")
	}
	if result.LikeCount != 1 {
		t.Fatalf("expected count 1, got %d", result.LikeCount)
	}
	if repo.created == nil || repo.created.UserID != userID || repo.created.PostID != post.ID {
		t.Fatalf("unexpected created like %+v", repo.created)
	}
	if notifier.notified != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.notified)
	}
}

func TestToggleUnlikesAndRetracts(t *testing.T) {
	userID := uuid.New()
	post := &models.Post{ID: uuid.New(), AuthorID: uuid.New(), Title: "Post"}
	existing := &models.Like{ID: uuid.New(), UserID: userID, PostID: post.ID}

	repo := &fakeRepo{existing: existing}
	notifier := &fakeNotifier{}
	svc := newServiceForTest(t, repo, &fakePosts{post: post}, notifier)

	result, err := svc.Toggle(context.Background(), userID, post.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if result.Liked {
		t.Fatal("expected liked=false")
	}
	if repo.deleted != existing.ID {
		t.Fatalf("expected delete of %s, got %s", existing.ID, repo.deleted)
	}
	if notifier.retracted != 1 {
		t.Fatalf("expected 1 retraction, got %d", notifier.retracted)
	}
	if notifier.notified != 0 {
		t.Fatal("must not notify on unlike")
	}
}

func TestToggleSelfLikeSkipsNotification(t *testing.T) {
	userID := uuid.New()
	post := &models.Post{ID: uuid.New(), AuthorID: userID, Title: "Mine"}

	notifier := &fakeNotifier{}
	svc := newServiceForTest(t, &fakeRepo{}, &fakePosts{post: post}, notifier)

	result, err := svc.Toggle(context.Background(), userID, post.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !result.Liked {
		t.Fatal("expected liked=true")
	}
	if notifier.notified != 0 {
		t.Fatal("authors must not be notified about their own likes")
	}
}

func TestTogglePostNotFound(t *testing.T) {
	svc := newServiceForTest(t, &fakeRepo{}, &fakePosts{post: nil}, &fakeNotifier{})

	_, err := svc.Toggle(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleNotificationFailureDoesNotFailLike(t *testing.T) {
	userID := uuid.New()
	post := &models.Post{ID: uuid.New(), AuthorID: uuid.New(), Title: "Post"}

	repo := &fakeRepo{}
	notifier := &fakeNotifier{err: errors.New("push down")}
	svc := newServiceForTest(t, repo, &fakePosts{post: post}, notifier)

	result, err := svc.Toggle(context.Background(), userID, post.ID)
	if err != nil {
		t.Fatalf("expected notification failure swallowed, got %v", err)
	}
	if !result.Liked {
		t.Fatal("expected liked=true despite notification failure")
	}
	if repo.created == nil {
		t.Fatal("expected like persisted")
	}
}

func TestToggleCreateFailurePropagates(t *testing.T) {
	post := &models.Post{ID: uuid.New(), AuthorID: uuid.New(), Title: "Post"}
	repo := &fakeRepo{createErr: errors.New("db down")}
	notifier := &fakeNotifier{}
	svc := newServiceForTest(t, repo, &fakePosts{post: post}, notifier)

	if _, err := svc.Toggle(context.Background(), uuid.New(), post.ID); err == nil {
		t.Fatal("expected error")
	}
	if notifier.notified != 0 {
		t.Fatal("must not notify when the like failed")
	}
}
