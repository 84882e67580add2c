package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is one user's score for one store. The composite unique index
// keeps a single row per (user, store) pair.
type Rating struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_rating_user_store" json:"userId"`
	StoreID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_rating_user_store;index" json:"storeId"`
	Value       int       `gorm:"not null" json:"value"`
	Comment     *string   `gorm:"type:varchar(500)" json:"comment,omitempty"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Store *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	return assignID(&r.ID)
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalStores  int64 `json:"totalStores"`
	TotalRatings int64 `json:"totalRatings"`
}
