package repository

import (
	"context"

	"gorm.io/gorm"
)

type GormDatastore struct {
	db      *gorm.DB
	users   *UserRepositoryGorm
	stores  *StoreRepositoryGorm
	ratings *RatingRepositoryGorm
}

func NewGormDatastore(db *gorm.DB) *GormDatastore {
	return &GormDatastore{
		db:      db,
		users:   NewUserRepository(db),
		stores:  NewStoreRepository(db),
		ratings: NewRatingRepository(db),
	}
}

func (d *GormDatastore) Users() UserRepository     { return d.users }
func (d *GormDatastore) Stores() StoreRepository   { return d.stores }
func (d *GormDatastore) Ratings() RatingRepository { return d.ratings }

// Transaction commits when fn returns nil and rolls back otherwise.
func (d *GormDatastore) Transaction(ctx context.Context, fn func(tx Datastore) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormDatastore(tx))
	})
}
