package service

import (
	"context"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"go.uber.org/zap"
)

// OwnerDashboard is what a store owner sees about their store.
type OwnerDashboard struct {
	Store         *models.Store   `json:"store"`
	AverageRating float64         `json:"averageRating"`
	TotalRatings  int64           `json:"totalRatings"`
	Ratings       []models.Rating `json:"ratings"`
}

type DashboardService struct {
	store repository.Datastore
}

func NewDashboardService(store repository.Datastore) *DashboardService {
	return &DashboardService{store: store}
}

// Stats counts users, stores and ratings. Admin only.
func (s *DashboardService) Stats(ctx context.Context, actor policy.Actor) (*models.DashboardStats, error) {
	if err := authorize(actor, policy.ActionRead, policy.Dashboard()); err != nil {
		return nil, err
	}

	var (
		stats models.DashboardStats
		err   error
	)
	if stats.TotalUsers, err = s.store.Users().Count(ctx); err != nil {
		logger.Log.Error("Failed to count users", zap.Error(err))
		return nil, err
	}
	if stats.TotalStores, err = s.store.Stores().Count(ctx); err != nil {
		logger.Log.Error("Failed to count stores", zap.Error(err))
		return nil, err
	}
	if stats.TotalRatings, err = s.store.Ratings().Count(ctx); err != nil {
		logger.Log.Error("Failed to count ratings", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}

// OwnerDashboard returns the caller's store with its ratings and their
// authors.
func (s *DashboardService) OwnerDashboard(ctx context.Context, actor policy.Actor) (*OwnerDashboard, error) {
	if actor.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	if actor.Role != models.RoleStoreOwner {
		return nil, ErrForbidden
	}

	store, err := s.store.Stores().GetByOwner(ctx, actor.ID)
	if err != nil {
		logger.Log.Error("Failed to load owner store", zap.String("owner_id", actor.ID), zap.Error(err))
		return nil, err
	}
	if store == nil {
		return nil, ErrNotFound
	}
	if err := authorize(actor, policy.ActionRead, policy.Rating("", store.OwnerID)); err != nil {
		return nil, err
	}

	ratings, err := s.store.Ratings().ListByStore(ctx, store.ID)
	if err != nil {
		logger.Log.Error("Failed to load store ratings", zap.String("store_id", store.ID), zap.Error(err))
		return nil, err
	}

	return &OwnerDashboard{
		Store:         store,
		AverageRating: store.AverageRating,
		TotalRatings:  store.TotalRatings,
		Ratings:       ratings,
	}, nil
}
