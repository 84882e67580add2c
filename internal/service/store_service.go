package service

import (
	"context"
	"strings"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/query"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"go.uber.org/zap"
)

type CreateStoreInput struct {
	Name    string
	Email   string
	Address string
	OwnerID string
}

// StorePatch holds the descriptive fields to change. Aggregates are not
// patchable.
type StorePatch struct {
	Name    *string
	Email   *string
	Address *string
	OwnerID *string
}

type StoreFilter struct {
	Name    string
	Address string
	Search  string
	Sort    string
	Order   string
}

var (
	storeName    = query.TextField("name", func(s models.Store) string { return s.Name })
	storeEmail   = query.TextField("email", func(s models.Store) string { return s.Email })
	storeAddress = query.TextField("address", func(s models.Store) string { return s.Address })

	storeSortFields = []query.Field[models.Store]{
		storeName,
		storeEmail,
		storeAddress,
		query.NumberField("averageRating", func(s models.Store) float64 { return s.AverageRating }),
		query.NumberField("totalRatings", func(s models.Store) float64 { return float64(s.TotalRatings) }),
		query.NumberField("createdAt", func(s models.Store) float64 { return float64(s.CreatedAt.UnixNano()) }),
	}
)

type StoreService struct {
	store  repository.Datastore
	ledger *RatingService
}

func NewStoreService(store repository.Datastore, ledger *RatingService) *StoreService {
	return &StoreService{store: store, ledger: ledger}
}

func (s *StoreService) CreateStore(ctx context.Context, actor policy.Actor, in CreateStoreInput) (*models.Store, error) {
	start := time.Now()

	if err := authorize(actor, policy.ActionCreate, policy.Store(in.OwnerID)); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	v := &ValidationError{}
	validateStoreName(v, in.Name)
	validateEmail(v, "email", email)
	validateAddress(v, in.Address)
	if in.OwnerID == "" {
		v.Add("owner", "owner is required")
	}
	if err := v.Err(); err != nil {
		logger.Log.Warn("Store validation failed", zap.Error(err))
		return nil, err
	}

	if err := s.checkOwner(ctx, in.OwnerID, ""); err != nil {
		return nil, err
	}

	store := &models.Store{
		Name:    strings.TrimSpace(in.Name),
		Email:   email,
		Address: strings.TrimSpace(in.Address),
		OwnerID: in.OwnerID,
	}
	if err := s.store.Stores().Create(ctx, store); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		logger.Log.Error("Failed to create store", zap.String("owner_id", in.OwnerID), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Store created",
		zap.String("store_id", store.ID),
		zap.String("owner_id", store.OwnerID),
		zap.String("admin_id", actor.ID),
		zap.Duration("total_duration", time.Since(start)),
	)
	return store, nil
}

// ListStores is public. name and address match one column each, search
// matches any of name, email and address.
func (s *StoreService) ListStores(ctx context.Context, actor policy.Actor, f StoreFilter) ([]models.Store, error) {
	if err := authorize(actor, policy.ActionRead, policy.Store("")); err != nil {
		return nil, err
	}

	stores, err := s.store.Stores().List(ctx)
	if err != nil {
		logger.Log.Error("Failed to list stores", zap.Error(err))
		return nil, err
	}

	stores = query.MatchField(stores, f.Name, storeName)
	stores = query.MatchField(stores, f.Address, storeAddress)
	stores = query.Search(stores, f.Search, storeName, storeEmail, storeAddress)

	stores, err = query.Sort(stores, f.Sort, query.ParseDirection(f.Order), storeSortFields)
	if err != nil {
		return nil, fieldError("sort", "sort must be one of "+strings.Join(query.SortKeys(storeSortFields), ", "))
	}
	return stores, nil
}

func (s *StoreService) GetStore(ctx context.Context, actor policy.Actor, id string) (*models.Store, error) {
	store, err := s.store.Stores().GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to load store", zap.String("store_id", id), zap.Error(err))
		return nil, err
	}
	if store == nil {
		return nil, ErrNotFound
	}
	if err := authorize(actor, policy.ActionRead, policy.Store(store.OwnerID)); err != nil {
		return nil, err
	}
	return store, nil
}

// ListStoresByOwner returns the stores owned by ownerID, at most one.
func (s *StoreService) ListStoresByOwner(ctx context.Context, actor policy.Actor, ownerID string) ([]models.Store, error) {
	if err := authorize(actor, policy.ActionRead, policy.User(ownerID)); err != nil {
		return nil, err
	}

	store, err := s.store.Stores().GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return []models.Store{}, nil
	}
	return []models.Store{*store}, nil
}

// UpdateStore merges patch into the store. Owners may edit their own store
// but only admins may hand it to another owner.
func (s *StoreService) UpdateStore(ctx context.Context, actor policy.Actor, id string, patch StorePatch) (*models.Store, error) {
	store, err := s.store.Stores().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if store == nil {
		if actor.IsAnonymous() {
			return nil, ErrUnauthorized
		}
		return nil, ErrNotFound
	}

	if err := authorize(actor, policy.ActionUpdate, policy.Store(store.OwnerID)); err != nil {
		logger.Log.Warn("Store update denied",
			zap.String("store_id", id),
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
		)
		return nil, err
	}
	if patch.OwnerID != nil && *patch.OwnerID != store.OwnerID && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	v := &ValidationError{}
	if patch.Name != nil {
		validateStoreName(v, *patch.Name)
		store.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		validateEmail(v, "email", email)
		store.Email = email
	}
	if patch.Address != nil {
		validateAddress(v, *patch.Address)
		store.Address = strings.TrimSpace(*patch.Address)
	}
	reassigned := patch.OwnerID != nil && *patch.OwnerID != store.OwnerID
	if reassigned && *patch.OwnerID == "" {
		v.Add("owner", "owner is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if reassigned {
		if err := s.checkOwner(ctx, *patch.OwnerID, store.ID); err != nil {
			return nil, err
		}
		store.OwnerID = *patch.OwnerID
	}

	if err := s.store.Stores().Update(ctx, store); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		logger.Log.Error("Failed to update store", zap.String("store_id", id), zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Store updated",
		zap.String("store_id", id),
		zap.String("actor_id", actor.ID),
		zap.Bool("owner_reassigned", reassigned),
	)
	return store, nil
}

// DeleteStore removes the store together with its ratings.
func (s *StoreService) DeleteStore(ctx context.Context, actor policy.Actor, id string) error {
	if err := authorize(actor, policy.ActionDelete, policy.Store("")); err != nil {
		return err
	}

	store, err := s.store.Stores().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if store == nil {
		return ErrNotFound
	}

	err = s.ledger.removeStoreRatings(ctx, id, func(tx repository.Datastore) error {
		return tx.Stores().Delete(ctx, id)
	})
	if err != nil {
		logger.Log.Error("Failed to delete store", zap.String("store_id", id), zap.Error(err))
		return err
	}

	logger.Log.Info("Store deleted",
		zap.String("store_id", id),
		zap.String("admin_id", actor.ID),
	)
	return nil
}

// checkOwner requires ownerID to be an existing store owner that owns no
// store other than exceptStoreID.
func (s *StoreService) checkOwner(ctx context.Context, ownerID, exceptStoreID string) error {
	owner, err := s.store.Users().GetByID(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner == nil || owner.Role != models.RoleStoreOwner {
		return fieldError("owner", "owner must be an existing store owner")
	}

	owned, err := s.store.Stores().GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if owned != nil && owned.ID != exceptStoreID {
		logger.Log.Warn("Owner already has a store",
			zap.String("owner_id", ownerID),
			zap.String("store_id", owned.ID),
		)
		return ErrConflict
	}
	return nil
}
