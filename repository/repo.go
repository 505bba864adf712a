package repository

import (
	"context"
	"errors"
	"fmt"
	"gorm.io/gorm"
	"media-registry/entities"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateFilename means another row already owns the storage key.
	ErrDuplicateFilename = errors.New("filename already recorded")
)

// RecordingRepository is the metadata side of a recording. It knows nothing
// about where the payload lives.
type RecordingRepository interface {
	Migrate(ctx context.Context) error
	Insert(ctx context.Context, rec *entities.Recording) error
	ListAllDesc(ctx context.Context) ([]*entities.Recording, error)
	GetByID(ctx context.Context, id int64) (*entities.Recording, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	Close() error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) RecordingRepository {
	return &repo{
		db: db,
	}
}

func (r *repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&entities.Recording{})
}

func (r *repo) Insert(ctx context.Context, rec *entities.Recording) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert %s: %w", rec.Filename, ErrDuplicateFilename)
	}
	return err
}

func (r *repo) ListAllDesc(ctx context.Context) ([]*entities.Recording, error) {
	recordings := make([]*entities.Recording, 0)
	err := r.db.WithContext(ctx).Order("id DESC").Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	return recordings, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (*entities.Recording, error) {
	rec := &entities.Recording{}
	err := r.db.WithContext(ctx).First(rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *repo) DeleteByID(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Recording{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
