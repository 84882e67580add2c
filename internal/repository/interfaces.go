// Package repository holds the data-access contracts used by the services
// and their GORM implementation. Lookups return (nil, nil) when the record
// does not exist.
package repository

import (
	"context"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) error
	GetByID(ctx context.Context, id string) (*models.Store, error)
	// GetByIDForUpdate row-locks the store for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Store, error)
	GetByOwner(ctx context.Context, ownerID string) (*models.Store, error)
	List(ctx context.Context) ([]models.Store, error)
	// Update writes the descriptive columns only, never the aggregates.
	Update(ctx context.Context, store *models.Store) error
	SetAggregate(ctx context.Context, id string, average float64, total int64) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type RatingRepository interface {
	Create(ctx context.Context, rating *models.Rating) error
	// Update writes value, comment and submitted_at.
	Update(ctx context.Context, rating *models.Rating) error
	GetByID(ctx context.Context, id string) (*models.Rating, error)
	GetByUserAndStore(ctx context.Context, userID, storeID string) (*models.Rating, error)
	List(ctx context.Context) ([]models.Rating, error)
	ListByStore(ctx context.Context, storeID string) ([]models.Rating, error)
	ListByUser(ctx context.Context, userID string) ([]models.Rating, error)
	StoreIDsByUser(ctx context.Context, userID string) ([]string, error)
	Aggregate(ctx context.Context, storeID string) (average float64, total int64, err error)
	Delete(ctx context.Context, id string) error
	DeleteByStore(ctx context.Context, storeID string) error
	DeleteByUser(ctx context.Context, userID string) error
	Count(ctx context.Context) (int64, error)
}

// Datastore groups the repositories and runs units of work atomically.
// Repositories obtained from the tx argument of Transaction share its
// transaction.
type Datastore interface {
	Users() UserRepository
	Stores() StoreRepository
	Ratings() RatingRepository
	Transaction(ctx context.Context, fn func(tx Datastore) error) error
}
