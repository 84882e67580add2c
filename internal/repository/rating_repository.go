package repository

import (
	"context"
	"errors"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepositoryGorm struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepositoryGorm {
	return &RatingRepositoryGorm{db: db}
}

func (r *RatingRepositoryGorm) Create(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rating).Error
}

func (r *RatingRepositoryGorm) Update(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).
		Model(rating).
		Omit(clause.Associations).
		Select("Value", "Comment", "SubmittedAt").
		Updates(rating).Error
}

func (r *RatingRepositoryGorm) GetByID(ctx context.Context, id string) (*models.Rating, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RatingRepositoryGorm) GetByUserAndStore(ctx context.Context, userID, storeID string) (*models.Rating, error) {
	return r.first(ctx, "user_id = ? AND store_id = ?", userID, storeID)
}

func (r *RatingRepositoryGorm) first(ctx context.Context, query string, args ...any) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).Where(query, args...).First(&rating).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

// listing preloads author and store so callers can render names.
func (r *RatingRepositoryGorm) listing(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Store").
		Order("created_at ASC, id ASC")
}

func (r *RatingRepositoryGorm) List(ctx context.Context) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.listing(ctx).Find(&ratings).Error
	return ratings, err
}

func (r *RatingRepositoryGorm) ListByStore(ctx context.Context, storeID string) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.listing(ctx).Where("store_id = ?", storeID).Find(&ratings).Error
	return ratings, err
}

func (r *RatingRepositoryGorm) ListByUser(ctx context.Context, userID string) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.listing(ctx).Where("user_id = ?", userID).Find(&ratings).Error
	return ratings, err
}

func (r *RatingRepositoryGorm) StoreIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("user_id = ?", userID).
		Distinct("store_id").
		Pluck("store_id", &ids).Error
	return ids, err
}

// Aggregate computes the arithmetic mean and count of a store's ratings.
// The mean is 0 when the store has none.
func (r *RatingRepositoryGorm) Aggregate(ctx context.Context, storeID string) (float64, int64, error) {
	var agg struct {
		Average float64
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("COALESCE(AVG(value), 0) AS average, COUNT(*) AS total").
		Where("store_id = ?", storeID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	return agg.Average, agg.Total, nil
}

func (r *RatingRepositoryGorm) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Rating{}).Error
}

func (r *RatingRepositoryGorm) DeleteByStore(ctx context.Context, storeID string) error {
	return r.db.WithContext(ctx).Where("store_id = ?", storeID).Delete(&models.Rating{}).Error
}

func (r *RatingRepositoryGorm) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Rating{}).Error
}

func (r *RatingRepositoryGorm) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Rating{}).Count(&n).Error
	return n, err
}
