package repository

import (
	"context"
	"errors"

	"github.com/userhub/engine/internal/models"
	appErr "github.com/userhub/engine/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	BaseRepository[models.User]
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	GetRandom(ctx context.Context, dest *models.User) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

// List returns a page ordered by id so consecutive pages never overlap.
func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	out := []models.User{}
	if err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list users failed")
	}
	return out, nil
}

func (r *userRepository) GetRandom(ctx context.Context, dest *models.User) error {
	if err := r.db.WithContext(ctx).Order("RANDOM()").Limit(1).Take(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "no users stored")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get random user failed")
	}
	return nil
}
