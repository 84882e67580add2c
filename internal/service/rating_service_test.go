package service_test

import (
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
)

func (s *ServiceSuite) TestSubmitRating_SecondRatingReplacesFirst() {
	store, _ := s.newStore("Coffee Corner")
	_, u1 := s.newUser()

	first, created, err := s.ratings.SubmitRating(s.ctx, u1, "", store.ID, 4, nil)
	s.Require().NoError(err)
	s.True(created)

	second, created, err := s.ratings.SubmitRating(s.ctx, u1, "", store.ID, 5, ptr("even better"))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)

	ratings, err := s.ratings.ListRatingsForStore(s.ctx, s.adminActor(), store.ID)
	s.Require().NoError(err)
	s.Require().Len(ratings, 1)
	s.Equal(5, ratings[0].Value)
	s.Equal("even better", *ratings[0].Comment)

	got := s.reloadStore(store.ID)
	s.InDelta(5.0, got.AverageRating, 1e-9)
	s.EqualValues(1, got.TotalRatings)
}

func (s *ServiceSuite) TestSubmitRating_AverageOfThreeRaters() {
	store, _ := s.newStore("Book Nook")

	for _, v := range []float64{5, 4, 3} {
		_, actor := s.newUser()
		s.rate(actor, store.ID, v)
	}

	got := s.reloadStore(store.ID)
	s.InDelta(4.0, got.AverageRating, 1e-9)
	s.EqualValues(3, got.TotalRatings)
}

func (s *ServiceSuite) TestSubmitRating_InvalidValueLeavesLedgerUnchanged() {
	store, _ := s.newStore("Gadget Hub")
	_, actor := s.newUser()
	s.rate(actor, store.ID, 2)

	for _, v := range []float64{6, 0, -1, 3.5, math.NaN(), math.Inf(1)} {
		_, _, err := s.ratings.SubmitRating(s.ctx, actor, "", store.ID, v, nil)
		s.ErrorIs(err, service.ErrInvalidRating, "value %v", v)
	}

	got := s.reloadStore(store.ID)
	s.InDelta(2.0, got.AverageRating, 1e-9)
	s.EqualValues(1, got.TotalRatings)
}

func (s *ServiceSuite) TestSubmitRating_Authorization() {
	store, ownerActor := s.newStore("Pizza Place")
	user, userActor := s.newUser()
	_, otherActor := s.newUser()

	_, _, err := s.ratings.SubmitRating(s.ctx, ownerActor, "", store.ID, 4, nil)
	s.ErrorIs(err, service.ErrForbidden, "store owners cannot rate")

	_, _, err = s.ratings.SubmitRating(s.ctx, policy.Anonymous, "", store.ID, 4, nil)
	s.ErrorIs(err, service.ErrUnauthorized)

	_, _, err = s.ratings.SubmitRating(s.ctx, otherActor, user.ID, store.ID, 4, nil)
	s.ErrorIs(err, service.ErrForbidden, "users cannot rate on behalf of others")

	r, created, err := s.ratings.SubmitRating(s.ctx, s.adminActor(), user.ID, store.ID, 3, nil)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(user.ID, r.UserID)

	_, created, err = s.ratings.SubmitRating(s.ctx, userActor, "", store.ID, 1, nil)
	s.Require().NoError(err)
	s.False(created, "admin-entered rating belongs to the user")
}

func (s *ServiceSuite) TestSubmitRating_UnknownStore() {
	_, actor := s.newUser()

	_, _, err := s.ratings.SubmitRating(s.ctx, actor, "", "missing-store", 4, nil)
	s.ErrorIs(err, service.ErrNotFound)
}

func (s *ServiceSuite) TestSubmitRating_CommentTooLong() {
	store, _ := s.newStore("Tea House")
	_, actor := s.newUser()

	_, _, err := s.ratings.SubmitRating(s.ctx, actor, "", store.ID, 4, ptr(strings.Repeat("x", 501)))

	var verr *service.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "comment")
}

func (s *ServiceSuite) TestSubmitRating_ConcurrentSameUser() {
	store, _ := s.newStore("Busy Bakery")
	_, actor := s.newUser()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, _, err := s.ratings.SubmitRating(s.ctx, actor, "", store.ID, float64(v%5+1), nil)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	ratings, err := s.ratings.ListRatingsForStore(s.ctx, s.adminActor(), store.ID)
	s.Require().NoError(err)
	s.Require().Len(ratings, 1)

	got := s.reloadStore(store.ID)
	s.EqualValues(1, got.TotalRatings)
	s.InDelta(float64(ratings[0].Value), got.AverageRating, 1e-9)
}

func (s *ServiceSuite) TestSubmitRating_ConcurrentDistinctUsers() {
	store, _ := s.newStore("Crowded Cafe")

	actors := make([]policy.Actor, 10)
	for i := range actors {
		_, actors[i] = s.newUser()
	}

	var wg sync.WaitGroup
	for i, a := range actors {
		wg.Add(1)
		go func(a policy.Actor, v float64) {
			defer wg.Done()
			_, _, err := s.ratings.SubmitRating(s.ctx, a, "", store.ID, v, nil)
			s.NoError(err)
		}(a, float64(i%5+1))
	}
	wg.Wait()

	got := s.reloadStore(store.ID)
	s.EqualValues(10, got.TotalRatings)
	s.InDelta(3.0, got.AverageRating, 1e-9)
}

// TestAggregate_MatchesMeanAfterRandomOperations checks the stored average
// against the ratings after every step of a random submit/delete sequence.
func (s *ServiceSuite) TestAggregate_MatchesMeanAfterRandomOperations() {
	rng := rand.New(rand.NewSource(42))

	stores := make([]*models.Store, 3)
	for i := range stores {
		stores[i], _ = s.newStore("Random Store")
	}
	actors := make([]policy.Actor, 5)
	for i := range actors {
		_, actors[i] = s.newUser()
	}

	for step := 0; step < 60; step++ {
		store := stores[rng.Intn(len(stores))]

		if rng.Intn(4) == 0 {
			existing, err := s.ratings.ListRatingsForStore(s.ctx, s.adminActor(), store.ID)
			s.Require().NoError(err)
			if len(existing) > 0 {
				victim := existing[rng.Intn(len(existing))]
				s.Require().NoError(s.ratings.DeleteRating(s.ctx, s.adminActor(), victim.ID))
			}
		} else {
			s.rate(actors[rng.Intn(len(actors))], store.ID, float64(rng.Intn(5)+1))
		}

		for _, st := range stores {
			s.assertAggregate(st.ID)
		}
	}
}

func (s *ServiceSuite) assertAggregate(storeID string) {
	ratings, err := s.ratings.ListRatingsForStore(s.ctx, s.adminActor(), storeID)
	s.Require().NoError(err)

	raters := map[string]bool{}
	sum := 0
	for _, r := range ratings {
		s.False(raters[r.UserID], "duplicate rating for user %s", r.UserID)
		raters[r.UserID] = true
		sum += r.Value
	}

	want := 0.0
	if len(ratings) > 0 {
		want = float64(sum) / float64(len(ratings))
	}

	got := s.reloadStore(storeID)
	s.EqualValues(len(ratings), got.TotalRatings)
	s.InDelta(want, got.AverageRating, 1e-9)
}

func (s *ServiceSuite) TestListRatingsForStore_Policy() {
	store, ownerActor := s.newStore("Shoe Shop")
	_, otherOwner := s.newStore("Hat Shop")
	rater, raterActor := s.newUser()
	s.rate(raterActor, store.ID, 4)

	ratings, err := s.ratings.ListRatingsForStore(s.ctx, ownerActor, store.ID)
	s.Require().NoError(err)
	s.Require().Len(ratings, 1)
	s.Require().NotNil(ratings[0].User)
	s.Equal(rater.Name, ratings[0].User.Name)
	s.Equal(rater.Email, ratings[0].User.Email)

	_, err = s.ratings.ListRatingsForStore(s.ctx, otherOwner, store.ID)
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.ratings.ListRatingsForStore(s.ctx, raterActor, store.ID)
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.ratings.ListRatingsForStore(s.ctx, s.adminActor(), "missing")
	s.ErrorIs(err, service.ErrNotFound)
}

func (s *ServiceSuite) TestListRatingsFiltered() {
	storeA, _ := s.newStore("Store A")
	storeB, _ := s.newStore("Store B")
	u1, a1 := s.newUser()
	_, a2 := s.newUser()
	s.rate(a1, storeA.ID, 5)
	s.rate(a1, storeB.ID, 3)
	s.rate(a2, storeA.ID, 1)

	own, err := s.ratings.ListRatingsFiltered(s.ctx, a1, service.RatingFilter{})
	s.Require().NoError(err)
	s.Len(own, 2)

	all, err := s.ratings.ListRatingsFiltered(s.ctx, s.adminActor(), service.RatingFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	one, err := s.ratings.ListRatingsFiltered(s.ctx, a1, service.RatingFilter{StoreID: storeB.ID, UserID: u1.ID})
	s.Require().NoError(err)
	s.Require().Len(one, 1)
	s.Equal(3, one[0].Value)

	_, err = s.ratings.ListRatingsFiltered(s.ctx, a2, service.RatingFilter{UserID: u1.ID})
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.ratings.ListRatingsFiltered(s.ctx, policy.Anonymous, service.RatingFilter{})
	s.ErrorIs(err, service.ErrUnauthorized)
}

func (s *ServiceSuite) TestDeleteRating() {
	store, _ := s.newStore("Deli")
	_, a1 := s.newUser()
	_, a2 := s.newUser()
	r1 := s.rate(a1, store.ID, 5)
	s.rate(a2, store.ID, 1)

	s.ErrorIs(s.ratings.DeleteRating(s.ctx, a1, r1.ID), service.ErrForbidden)
	s.ErrorIs(s.ratings.DeleteRating(s.ctx, s.adminActor(), "missing"), service.ErrNotFound)

	s.Require().NoError(s.ratings.DeleteRating(s.ctx, s.adminActor(), r1.ID))

	got := s.reloadStore(store.ID)
	s.EqualValues(1, got.TotalRatings)
	s.InDelta(1.0, got.AverageRating, 1e-9)
}
