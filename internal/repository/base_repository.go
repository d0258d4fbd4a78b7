package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/userhub/engine/pkg/database"
	appErr "github.com/userhub/engine/pkg/errors"
	"gorm.io/gorm"
)

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	// Update writes the given columns of obj, or every column when none are named.
	Update(ctx context.Context, obj *T, columns ...string) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) BaseRepository[T] {
	return &baseRepository[T]{db: db}
}

// Create inserts obj inside its own transaction; a failed insert leaves no row behind.
func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return writeError(err, "create entity failed")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "entity not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T, columns ...string) error {
	if len(columns) == 0 {
		if err := r.db.WithContext(ctx).Save(obj).Error; err != nil {
			return writeError(err, "update entity failed")
		}
		return nil
	}
	res := r.db.WithContext(ctx).Model(obj).Select(columns).Updates(obj)
	if res.Error != nil {
		return writeError(res.Error, "update entity failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "entity not found")
	}
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete entity failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("entity %v not found", id))
	}
	return nil
}

// writeError classifies insert/update failures. Unique violations become
// CodeConflict with the offending field recorded under Meta["field"].
func writeError(err error, message string) error {
	if !isUniqueViolation(err) {
		return appErr.Wrap(err, appErr.CodeInternal, message)
	}
	field := conflictField(err)
	return appErr.Wrap(err, appErr.CodeConflict, fmt.Sprintf("duplicate %s", field)).WithMeta("field", field)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || database.IsUniqueViolation(err)
}

func conflictField(err error) string {
	text := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		text = pgErr.ConstraintName + " " + pgErr.Detail
	}
	text = strings.ToLower(text)
	for _, f := range []string{"email", "username", "uuid"} {
		if strings.Contains(text, f) {
			return f
		}
	}
	return "key"
}
