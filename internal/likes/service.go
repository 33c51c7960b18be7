package likes

import (
	"context"

	"github.com/google/uuid"

	"github.com/avelarsoto/communa-backend/pkg/db/models"
	pkgerrors "github.com/avelarsoto/communa-backend/pkg/errors"
	"github.com/avelarsoto/communa-backend/pkg/logger"
)

// PostGetter resolves the target post and its owner.
type PostGetter interface {
	GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error)
}

// Notifier is the slice of the notification orchestrator the like flow uses.
// Its failures never fail the like itself.
type Notifier interface {
	NotifyLike(ctx context.Context, ownerID, senderID uuid.UUID, post *models.Post) (*models.Notification, error)
	RetractLike(ctx context.Context, ownerID, senderID, entityID uuid.UUID) error
}

// Service toggles likes and drives the corresponding notifications.
type Service interface {
	Toggle(ctx context.Context, userID, postID uuid.UUID) (*ToggleResult, error)
}

// ToggleResult reports the like state after the toggle.
type ToggleResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

type service struct {
	repo     Repository
	posts    PostGetter
	notifier Notifier
	logg     *logger.Logger
}

// NewService wires likes dependencies.
func NewService(repo Repository, posts PostGetter, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "likes repository required")
	}
	if posts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "posts lookup required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, posts: posts, notifier: notifier, logg: logg}, nil
}

// Toggle likes the post when no like exists and unlikes it otherwise.
// Authors liking their own post never notify themselves.
func (s *service) Toggle(ctx context.Context, userID, postID uuid.UUID) (*ToggleResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if postID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	if post == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}

	existing, err := s.repo.Find(ctx, userID, postID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find like")
	}

	liked := false
	if existing != nil {
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete like")
		}
		if post.AuthorID != userID {
			if err := s.notifier.RetractLike(ctx, post.AuthorID, userID, post.ID); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "post_id", postID.String()), "retracting like notification failed")
			}
		}
	} else {
		like := &models.Like{UserID: userID, PostID: postID}
		if err := s.repo.Create(ctx, like); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create like")
		}
		liked = true
		if post.AuthorID != userID {
			if _, err := s.notifier.NotifyLike(ctx, post.AuthorID, userID, post); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "post_id", postID.String()), "like notification failed")
			}
		}
	}

	count, err := s.repo.CountForPost(ctx, postID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count likes")
	}

	return &ToggleResult{Liked: liked, LikeCount: count}, nil
}
