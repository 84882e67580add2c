package service_test

import (
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
)

func (s *ServiceSuite) TestStats() {
	store, _ := s.newStore("Stats Store")
	_, a1 := s.newUser()
	_, a2 := s.newUser()
	s.rate(a1, store.ID, 5)
	s.rate(a2, store.ID, 3)

	stats, err := s.dashboard.Stats(s.ctx, s.adminActor())
	s.Require().NoError(err)
	s.Equal(models.DashboardStats{TotalUsers: 4, TotalStores: 1, TotalRatings: 2}, *stats)

	_, err = s.dashboard.Stats(s.ctx, a1)
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.dashboard.Stats(s.ctx, policy.Anonymous)
	s.ErrorIs(err, service.ErrUnauthorized)
}

func (s *ServiceSuite) TestOwnerDashboard() {
	store, ownerActor := s.newStore("Dashboard Store")
	rater, raterActor := s.newUser()
	s.rate(raterActor, store.ID, 4)

	dash, err := s.dashboard.OwnerDashboard(s.ctx, ownerActor)
	s.Require().NoError(err)
	s.Equal(store.ID, dash.Store.ID)
	s.InDelta(4.0, dash.AverageRating, 1e-9)
	s.EqualValues(1, dash.TotalRatings)
	s.Require().Len(dash.Ratings, 1)
	s.Equal(rater.Name, dash.Ratings[0].User.Name)

	_, err = s.dashboard.OwnerDashboard(s.ctx, raterActor)
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.dashboard.OwnerDashboard(s.ctx, policy.Anonymous)
	s.ErrorIs(err, service.ErrUnauthorized)

	storeless := s.newOwner()
	_, err = s.dashboard.OwnerDashboard(s.ctx, policy.Actor{ID: storeless.ID, Role: models.RoleStoreOwner})
	s.ErrorIs(err, service.ErrNotFound)
}
