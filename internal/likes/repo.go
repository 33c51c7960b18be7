package likes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelarsoto/communa-backend/pkg/db/models"
)

// Repository exposes persistence helpers for post likes.
type Repository interface {
	Find(ctx context.Context, userID, postID uuid.UUID) (*models.Like, error)
	Create(ctx context.Context, like *models.Like) error
	Delete(ctx context.Context, likeID uuid.UUID) error
	CountForPost(ctx context.Context, postID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a likes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// Find returns nil without error when the user has not liked the post.
func (r *repositoryImpl) Find(ctx context.Context, userID, postID uuid.UUID) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &like, nil
}

func (r *repositoryImpl) Create(ctx context.Context, like *models.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, likeID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Like{}, "id = ?", likeID).Error
}

func (r *repositoryImpl) CountForPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}
