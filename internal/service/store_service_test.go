package service_test

import (
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/HiteshriGautam/Store-Rating-System/internal/testutil"
)

func (s *ServiceSuite) newOwner() *models.User {
	return testutil.CreateRandomUser(s.T(), s.testDB.DB, models.RoleStoreOwner)
}

func (s *ServiceSuite) TestCreateStore() {
	owner := s.newOwner()

	store, err := s.stores.CreateStore(s.ctx, s.adminActor(), service.CreateStoreInput{
		Name:    "Corner Market",
		Email:   "Market@Example.com",
		Address: "10 Main Street",
		OwnerID: owner.ID,
	})
	s.Require().NoError(err)
	s.NotEmpty(store.ID)
	s.Equal("market@example.com", store.Email)
	s.Equal(owner.ID, store.OwnerID)
	s.Zero(store.AverageRating)
	s.Zero(store.TotalRatings)

	_, err = s.stores.CreateStore(s.ctx, s.adminActor(), service.CreateStoreInput{
		Name: "Second Market", Email: "second@example.com", Address: "11 Main Street", OwnerID: owner.ID,
	})
	s.ErrorIs(err, service.ErrConflict, "one store per owner")
}

func (s *ServiceSuite) TestCreateStore_OwnerMustBeStoreOwner() {
	user, _ := s.newUser()

	for _, ownerID := range []string{user.ID, "missing", ""} {
		_, err := s.stores.CreateStore(s.ctx, s.adminActor(), service.CreateStoreInput{
			Name: "Bad Owner", Email: "bad@example.com", Address: "1 Road", OwnerID: ownerID,
		})
		var verr *service.ValidationError
		s.Require().ErrorAs(err, &verr, "owner %q", ownerID)
		s.Contains(verr.Fields, "owner")
	}
}

func (s *ServiceSuite) TestCreateStore_AdminOnly() {
	owner := s.newOwner()
	in := service.CreateStoreInput{Name: "Mine", Email: "mine@example.com", Address: "1 Road", OwnerID: owner.ID}

	_, err := s.stores.CreateStore(s.ctx, testutil.ActorFor(owner), in)
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.stores.CreateStore(s.ctx, policy.Anonymous, in)
	s.ErrorIs(err, service.ErrUnauthorized)
}

func (s *ServiceSuite) TestListStores_FiltersAndSort() {
	fresh, _ := s.newStore("Fresh Mart")
	mega, _ := s.newStore("Mega Electronics")
	corner, _ := s.newStore("Corner Cafe")

	_, a1 := s.newUser()
	_, a2 := s.newUser()
	s.rate(a1, fresh.ID, 5)
	s.rate(a2, fresh.ID, 4)
	s.rate(a1, mega.ID, 2)

	all, err := s.stores.ListStores(s.ctx, policy.Anonymous, service.StoreFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	byName, err := s.stores.ListStores(s.ctx, policy.Anonymous, service.StoreFilter{Name: "mart"})
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal(fresh.ID, byName[0].ID)

	byAddress, err := s.stores.ListStores(s.ctx, policy.Anonymous, service.StoreFilter{Address: "market square"})
	s.Require().NoError(err)
	s.Len(byAddress, 3)

	searched, err := s.stores.ListStores(s.ctx, a1, service.StoreFilter{Search: "CAFE"})
	s.Require().NoError(err)
	s.Require().Len(searched, 1)
	s.Equal(corner.ID, searched[0].ID)

	ranked, err := s.stores.ListStores(s.ctx, a1, service.StoreFilter{Sort: "averageRating", Order: "desc"})
	s.Require().NoError(err)
	s.Require().Len(ranked, 3)
	s.Equal([]string{fresh.ID, mega.ID, corner.ID}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
	s.InDelta(4.5, ranked[0].AverageRating, 1e-9)

	_, err = s.stores.ListStores(s.ctx, a1, service.StoreFilter{Sort: "owner"})
	var verr *service.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "sort")
}

func (s *ServiceSuite) TestGetStore() {
	store, _ := s.newStore("Public Store")

	got, err := s.stores.GetStore(s.ctx, policy.Anonymous, store.ID)
	s.Require().NoError(err)
	s.Equal(store.Name, got.Name)

	_, err = s.stores.GetStore(s.ctx, policy.Anonymous, "missing")
	s.ErrorIs(err, service.ErrNotFound)
}

func (s *ServiceSuite) TestUpdateStore_OwnerEditsOwnStore() {
	store, ownerActor := s.newStore("Old Name")
	_, userActor := s.newUser()
	s.rate(userActor, store.ID, 3)

	updated, err := s.stores.UpdateStore(s.ctx, ownerActor, store.ID, service.StorePatch{Name: ptr("New Name")})
	s.Require().NoError(err)
	s.Equal("New Name", updated.Name)

	got := s.reloadStore(store.ID)
	s.Equal("New Name", got.Name)
	s.EqualValues(1, got.TotalRatings, "aggregates survive descriptive updates")
	s.InDelta(3.0, got.AverageRating, 1e-9)
}

func (s *ServiceSuite) TestUpdateStore_Forbidden() {
	store, ownerActor := s.newStore("Guarded Store")
	_, otherOwner := s.newStore("Rival Store")
	_, userActor := s.newUser()

	_, err := s.stores.UpdateStore(s.ctx, otherOwner, store.ID, service.StorePatch{Name: ptr("Hijacked")})
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.stores.UpdateStore(s.ctx, userActor, store.ID, service.StorePatch{Name: ptr("Hijacked")})
	s.ErrorIs(err, service.ErrForbidden)

	newOwner := s.newOwner()
	_, err = s.stores.UpdateStore(s.ctx, ownerActor, store.ID, service.StorePatch{OwnerID: ptr(newOwner.ID)})
	s.ErrorIs(err, service.ErrForbidden, "owners cannot hand their store away")
}

func (s *ServiceSuite) TestUpdateStore_AdminReassignsOwner() {
	store, _ := s.newStore("Handover Store")
	_, busyOwner := s.newStore("Busy Store")
	newOwner := s.newOwner()

	_, err := s.stores.UpdateStore(s.ctx, s.adminActor(), store.ID, service.StorePatch{OwnerID: ptr(busyOwner.ID)})
	s.ErrorIs(err, service.ErrConflict)

	updated, err := s.stores.UpdateStore(s.ctx, s.adminActor(), store.ID, service.StorePatch{OwnerID: ptr(newOwner.ID)})
	s.Require().NoError(err)
	s.Equal(newOwner.ID, updated.OwnerID)

	listed, err := s.stores.ListStoresByOwner(s.ctx, testutil.ActorFor(newOwner), newOwner.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(store.ID, listed[0].ID)
}

func (s *ServiceSuite) TestListStoresByOwner_Policy() {
	_, ownerActor := s.newStore("Owner Listing")
	_, other := s.newStore("Other Listing")

	_, err := s.stores.ListStoresByOwner(s.ctx, other, ownerActor.ID)
	s.ErrorIs(err, service.ErrForbidden)

	listed, err := s.stores.ListStoresByOwner(s.ctx, s.adminActor(), ownerActor.ID)
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *ServiceSuite) TestDeleteStore_CascadesRatings() {
	store, ownerActor := s.newStore("Closing Store")
	_, a1 := s.newUser()
	s.rate(a1, store.ID, 4)

	s.ErrorIs(s.stores.DeleteStore(s.ctx, ownerActor, store.ID), service.ErrForbidden)
	s.Require().NoError(s.stores.DeleteStore(s.ctx, s.adminActor(), store.ID))

	gone, err := s.store.Stores().GetByID(s.ctx, store.ID)
	s.Require().NoError(err)
	s.Nil(gone)

	count, err := s.store.Ratings().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	s.ErrorIs(s.stores.DeleteStore(s.ctx, s.adminActor(), store.ID), service.ErrNotFound)
}
