package posts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelarsoto/communa-backend/pkg/db/models"
)

// Repository exposes the post lookups the like/notification flows need.
type Repository interface {
	GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a posts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// GetByID returns nil without error when the post does not exist.
func (r *repositoryImpl) GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}
