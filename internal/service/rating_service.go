package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/metrics"
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"go.uber.org/zap"
)

// RatingService is the rating ledger. Writes for one store are serialized
// in-process by a keyed mutex and across processes by a row lock on the
// store, and every write recomputes the store aggregate in the same
// transaction.
type RatingService struct {
	store repository.Datastore
	locks *keyLock
}

func NewRatingService(store repository.Datastore) *RatingService {
	return &RatingService{
		store: store,
		locks: newKeyLock(),
	}
}

// RatingFilter narrows ListRatingsFiltered. Empty fields are ignored.
type RatingFilter struct {
	StoreID string
	UserID  string
}

// SubmitRating records userID's rating for storeID, replacing any earlier
// rating by the same user. An empty userID means the actor. The returned
// bool is true when a new rating was inserted.
func (s *RatingService) SubmitRating(ctx context.Context, actor policy.Actor, userID, storeID string, value float64, comment *string) (*models.Rating, bool, error) {
	start := time.Now()

	if userID == "" {
		userID = actor.ID
	}

	logger.Log.Debug("Processing rating submission",
		zap.String("actor_id", actor.ID),
		zap.String("user_id", userID),
		zap.String("store_id", storeID),
		zap.Float64("value", value),
	)

	if !validRatingValue(value) {
		metrics.RatingsRejected.WithLabelValues("invalid").Inc()
		logger.Log.Warn("Rating rejected: value out of range",
			zap.String("store_id", storeID),
			zap.Float64("value", value),
		)
		return nil, false, ErrInvalidRating
	}

	v := &ValidationError{}
	if storeID == "" {
		v.Add("storeId", "storeId is required")
	}
	validateComment(v, comment)
	if err := v.Err(); err != nil {
		metrics.RatingsRejected.WithLabelValues("invalid").Inc()
		return nil, false, err
	}

	if err := authorize(actor, policy.ActionCreate, policy.Rating(userID, "")); err != nil {
		metrics.RatingsRejected.WithLabelValues("forbidden").Inc()
		logger.Log.Warn("Rating rejected: not allowed",
			zap.String("actor_id", actor.ID),
			zap.String("user_id", userID),
			zap.String("store_id", storeID),
		)
		return nil, false, err
	}

	rater, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		metrics.RatingsRejected.WithLabelValues("error").Inc()
		logger.Log.Error("Failed to load rater", zap.String("user_id", userID), zap.Error(err))
		return nil, false, err
	}
	if rater == nil {
		metrics.RatingsRejected.WithLabelValues("not_found").Inc()
		return nil, false, ErrNotFound
	}

	unlock := s.locks.Lock(storeID)
	defer unlock()

	var (
		rating  *models.Rating
		created bool
	)
	err = s.store.Transaction(ctx, func(tx repository.Datastore) error {
		store, err := tx.Stores().GetByIDForUpdate(ctx, storeID)
		if err != nil {
			return err
		}
		if store == nil {
			return ErrNotFound
		}

		existing, err := tx.Ratings().GetByUserAndStore(ctx, userID, storeID)
		if err != nil {
			return err
		}

		now := time.Now()
		if existing != nil {
			existing.Value = int(value)
			existing.Comment = comment
			existing.SubmittedAt = now
			if err := tx.Ratings().Update(ctx, existing); err != nil {
				return err
			}
			rating = existing
		} else {
			rating = &models.Rating{
				UserID:      userID,
				StoreID:     storeID,
				Value:       int(value),
				Comment:     comment,
				SubmittedAt: now,
			}
			if err := tx.Ratings().Create(ctx, rating); err != nil {
				return err
			}
			created = true
		}

		return RecomputeStore(ctx, tx, storeID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			metrics.RatingsRejected.WithLabelValues("not_found").Inc()
			return nil, false, ErrNotFound
		case isDuplicateKey(err):
			metrics.RatingsRejected.WithLabelValues("conflict").Inc()
			logger.Log.Warn("Rating rejected: concurrent insert for same user and store",
				zap.String("user_id", userID),
				zap.String("store_id", storeID),
			)
			return nil, false, ErrConflict
		}
		metrics.RatingsRejected.WithLabelValues("error").Inc()
		logger.Log.Error("Failed to store rating",
			zap.String("user_id", userID),
			zap.String("store_id", storeID),
			zap.Error(err),
		)
		return nil, false, err
	}

	result := "updated"
	if created {
		result = "created"
	}
	metrics.RatingsSubmitted.WithLabelValues(result).Inc()

	logger.Log.Info("Rating stored",
		zap.String("rating_id", rating.ID),
		zap.String("user_id", userID),
		zap.String("store_id", storeID),
		zap.Int("value", rating.Value),
		zap.Bool("created", created),
		zap.Duration("total_duration", time.Since(start)),
	)

	return rating, created, nil
}

// ListRatingsForStore returns a store's ratings with their authors. Open to
// admins and the store's owner.
func (s *RatingService) ListRatingsForStore(ctx context.Context, actor policy.Actor, storeID string) ([]models.Rating, error) {
	store, err := s.store.Stores().GetByID(ctx, storeID)
	if err != nil {
		logger.Log.Error("Failed to load store", zap.String("store_id", storeID), zap.Error(err))
		return nil, err
	}
	if store == nil {
		return nil, ErrNotFound
	}

	if err := authorize(actor, policy.ActionRead, policy.Rating("", store.OwnerID)); err != nil {
		return nil, err
	}

	return s.store.Ratings().ListByStore(ctx, storeID)
}

// ListRatingsForUser returns the ratings written by userID.
func (s *RatingService) ListRatingsForUser(ctx context.Context, actor policy.Actor, userID string) ([]models.Rating, error) {
	if err := authorize(actor, policy.ActionRead, policy.Rating(userID, "")); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to load user", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	return s.store.Ratings().ListByUser(ctx, userID)
}

// ListRatings returns every rating. Admin only.
func (s *RatingService) ListRatings(ctx context.Context, actor policy.Actor) ([]models.Rating, error) {
	if err := authorize(actor, policy.ActionRead, policy.Rating("", "")); err != nil {
		return nil, err
	}
	return s.store.Ratings().List(ctx)
}

// ListRatingsFiltered dispatches on the filter. With no filter admins see
// every rating and other callers see their own.
func (s *RatingService) ListRatingsFiltered(ctx context.Context, actor policy.Actor, f RatingFilter) ([]models.Rating, error) {
	switch {
	case f.StoreID != "" && f.UserID != "":
		store, err := s.store.Stores().GetByID(ctx, f.StoreID)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, ErrNotFound
		}
		if err := authorize(actor, policy.ActionRead, policy.Rating(f.UserID, store.OwnerID)); err != nil {
			return nil, err
		}
		rating, err := s.store.Ratings().GetByUserAndStore(ctx, f.UserID, f.StoreID)
		if err != nil {
			return nil, err
		}
		if rating == nil {
			return []models.Rating{}, nil
		}
		return []models.Rating{*rating}, nil
	case f.StoreID != "":
		return s.ListRatingsForStore(ctx, actor, f.StoreID)
	case f.UserID != "":
		return s.ListRatingsForUser(ctx, actor, f.UserID)
	case actor.Role == models.RoleAdmin:
		return s.ListRatings(ctx, actor)
	default:
		if actor.IsAnonymous() {
			return nil, ErrUnauthorized
		}
		return s.ListRatingsForUser(ctx, actor, actor.ID)
	}
}

// DeleteRating removes a rating and recomputes its store. Admin only.
func (s *RatingService) DeleteRating(ctx context.Context, actor policy.Actor, ratingID string) error {
	if err := authorize(actor, policy.ActionDelete, policy.Rating("", "")); err != nil {
		return err
	}

	rating, err := s.store.Ratings().GetByID(ctx, ratingID)
	if err != nil {
		logger.Log.Error("Failed to load rating", zap.String("rating_id", ratingID), zap.Error(err))
		return err
	}
	if rating == nil {
		return ErrNotFound
	}

	unlock := s.locks.Lock(rating.StoreID)
	defer unlock()

	err = s.store.Transaction(ctx, func(tx repository.Datastore) error {
		if _, err := tx.Stores().GetByIDForUpdate(ctx, rating.StoreID); err != nil {
			return err
		}
		if err := tx.Ratings().Delete(ctx, rating.ID); err != nil {
			return err
		}
		return RecomputeStore(ctx, tx, rating.StoreID)
	})
	if err != nil {
		logger.Log.Error("Failed to delete rating", zap.String("rating_id", ratingID), zap.Error(err))
		return err
	}

	logger.Log.Info("Rating deleted",
		zap.String("rating_id", ratingID),
		zap.String("store_id", rating.StoreID),
		zap.String("admin_id", actor.ID),
	)
	return nil
}

// RecomputeStore rewrites the store's average and count from its ratings.
// The average is 0 when the store has no ratings.
func RecomputeStore(ctx context.Context, tx repository.Datastore, storeID string) error {
	start := time.Now()
	defer func() {
		metrics.AggregateRecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	avg, total, err := tx.Ratings().Aggregate(ctx, storeID)
	if err != nil {
		return err
	}
	if total == 0 || math.IsNaN(avg) {
		avg = 0
	}
	return tx.Stores().SetAggregate(ctx, storeID, avg, total)
}

func validRatingValue(v float64) bool {
	return !math.IsNaN(v) && v == math.Trunc(v) &&
		v >= models.MinRatingValue && v <= models.MaxRatingValue
}

// removeStoreRatings deletes every rating of storeID and then runs after in
// the same transaction while the store is locked.
func (s *RatingService) removeStoreRatings(ctx context.Context, storeID string, after func(tx repository.Datastore) error) error {
	unlock := s.locks.Lock(storeID)
	defer unlock()

	return s.store.Transaction(ctx, func(tx repository.Datastore) error {
		if _, err := tx.Stores().GetByIDForUpdate(ctx, storeID); err != nil {
			return err
		}
		if err := tx.Ratings().DeleteByStore(ctx, storeID); err != nil {
			return err
		}
		return after(tx)
	})
}

// removeUserRatings deletes every rating written by userID, recomputes the
// stores they touched and then runs after in the same transaction.
func (s *RatingService) removeUserRatings(ctx context.Context, userID string, after func(tx repository.Datastore) error) error {
	storeIDs, err := s.store.Ratings().StoreIDsByUser(ctx, userID)
	if err != nil {
		return err
	}

	unlock := s.locks.LockAll(storeIDs)
	defer unlock()

	return s.store.Transaction(ctx, func(tx repository.Datastore) error {
		// Re-read under the transaction; raters can add stores between the
		// first read and the lock.
		current, err := tx.Ratings().StoreIDsByUser(ctx, userID)
		if err != nil {
			return err
		}
		affected := slices.Clone(current)
		slices.Sort(affected)

		for _, id := range affected {
			if _, err := tx.Stores().GetByIDForUpdate(ctx, id); err != nil {
				return err
			}
		}
		if err := tx.Ratings().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		for _, id := range affected {
			if err := RecomputeStore(ctx, tx, id); err != nil {
				return err
			}
		}
		return after(tx)
	})
}
