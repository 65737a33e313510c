package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campusconnect/internal/model"
)

// LivestreamRepository defines livestream persistence operations.
type LivestreamRepository interface {
	Create(ctx context.Context, stream *model.Livestream) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Livestream, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.Livestream, error)
	ListActive(ctx context.Context) ([]model.Livestream, error)
	End(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	AdjustViewers(ctx context.Context, id uuid.UUID, delta int) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo LivestreamRepository) error) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Livestream, error)
}

type livestreamRepository struct {
	db *gorm.DB
}

// NewLivestreamRepository creates a new livestream repository.
func NewLivestreamRepository(db *gorm.DB) LivestreamRepository {
	return &livestreamRepository{db: db}
}

func (r *livestreamRepository) withHost(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Host", summary)
}

// Create creates a new livestream.
func (r *livestreamRepository) Create(ctx context.Context, stream *model.Livestream) error {
	return r.db.WithContext(ctx).Omit("Host").Create(stream).Error
}

// FindByID finds a livestream with its host.
func (r *livestreamRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Livestream, error) {
	var stream model.Livestream
	if err := r.withHost(ctx).Where("id = ?", id).First(&stream).Error; err != nil {
		return nil, err
	}
	return &stream, nil
}

// FindByIDForUpdate finds a livestream with a row-level lock; use inside WithTransaction.
func (r *livestreamRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Livestream, error) {
	var stream model.Livestream
	if err := r.db.WithContext(ctx).Set("gorm:query_option", "FOR UPDATE").
		Where("id = ?", id).First(&stream).Error; err != nil {
		return nil, err
	}
	return &stream, nil
}

// FindActiveByUser finds the host's live stream, if any.
func (r *livestreamRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.Livestream, error) {
	var stream model.Livestream
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.LivestreamLive).
		First(&stream).Error
	if err != nil {
		return nil, err
	}
	return &stream, nil
}

// ListActive lists live streams, newest first.
func (r *livestreamRepository) ListActive(ctx context.Context) ([]model.Livestream, error) {
	var streams []model.Livestream
	err := r.withHost(ctx).
		Where("status = ?", model.LivestreamLive).
		Order("started_at DESC").
		Find(&streams).Error
	if err != nil {
		return nil, err
	}
	return streams, nil
}

// End marks a live stream as ended and clears its viewers. An already ended
// stream returns gorm.ErrRecordNotFound.
func (r *livestreamRepository) End(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Livestream{}).
		Where("id = ? AND status = ?", id, model.LivestreamLive).
		Updates(map[string]interface{}{
			"status":       model.LivestreamEnded,
			"ended_at":     endedAt,
			"viewer_count": 0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustViewers adds delta to the viewer count without going below zero.
func (r *livestreamRepository) AdjustViewers(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Livestream{}).
		Where("id = ?", id).
		UpdateColumn("viewer_count", gorm.Expr("GREATEST(CAST(viewer_count AS SIGNED) + ?, 0)", delta)).Error
}

// WithTransaction executes a function within a database transaction.
func (r *livestreamRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo LivestreamRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &livestreamRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
