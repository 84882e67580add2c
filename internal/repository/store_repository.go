package repository

import (
	"context"
	"errors"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StoreRepositoryGorm struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) *StoreRepositoryGorm {
	return &StoreRepositoryGorm{db: db}
}

func (r *StoreRepositoryGorm) Create(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(store).Error
}

func (r *StoreRepositoryGorm) GetByID(ctx context.Context, id string) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// GetByIDForUpdate issues SELECT ... FOR UPDATE. The sqlite dialect drops the
// locking clause; SQLite already serializes writers.
func (r *StoreRepositoryGorm) GetByIDForUpdate(ctx context.Context, id string) (*models.Store, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(q, "id = ?", id)
}

func (r *StoreRepositoryGorm) GetByOwner(ctx context.Context, ownerID string) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx), "owner_id = ?", ownerID)
}

func (r *StoreRepositoryGorm) first(q *gorm.DB, query string, arg any) (*models.Store, error) {
	var store models.Store
	if err := q.Where(query, arg).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &store, nil
}

// List returns stores in insertion order.
func (r *StoreRepositoryGorm) List(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *StoreRepositoryGorm) Update(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).
		Model(store).
		Select("Name", "Email", "Address", "OwnerID").
		Updates(store).Error
}

func (r *StoreRepositoryGorm) SetAggregate(ctx context.Context, id string, average float64, total int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"average_rating": average,
			"total_ratings":  total,
		}).Error
}

func (r *StoreRepositoryGorm) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Store{}).Error
}

func (r *StoreRepositoryGorm) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&n).Error
	return n, err
}
