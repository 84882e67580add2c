package models

import (
	"time"

	"gorm.io/gorm"
)

// Store is a rateable shop. AverageRating and TotalRatings are derived from
// the ratings table and only written by the rating ledger.
type Store struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	Email         string    `gorm:"type:varchar(100);not null" json:"email"`
	Address       string    `gorm:"type:varchar(400);not null" json:"address"`
	OwnerID       string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"owner"`
	AverageRating float64   `gorm:"not null;default:0" json:"averageRating"`
	TotalRatings  int64     `gorm:"not null;default:0" json:"totalRatings"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	return assignID(&s.ID)
}
