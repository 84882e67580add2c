// Package policy decides whether an actor may perform an action on a
// resource. Decisions are pure: no lookups, no logging, no side effects.
// Callers load whatever ownership data the resource needs before asking.
package policy

import "github.com/HiteshriGautam/Store-Rating-System/internal/models"

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Kind string

const (
	KindUser      Kind = "user"
	KindStore     Kind = "store"
	KindRating    Kind = "rating"
	KindDashboard Kind = "dashboard"
)

// Actor is the caller. The zero value is an unauthenticated caller.
type Actor struct {
	ID   string
	Role models.Role
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

func (a Actor) IsAnonymous() bool {
	return a.ID == "" && a.Role == ""
}

// Resource describes the target of an action.
//
// OwnerID is the user the resource belongs to: the owner of a store, the
// author of a rating, or the user record itself. StoreOwnerID is only used
// for ratings and holds the owner of the rated store.
type Resource struct {
	Kind         Kind
	OwnerID      string
	StoreOwnerID string
}

func Store(ownerID string) Resource { return Resource{Kind: KindStore, OwnerID: ownerID} }

func User(userID string) Resource { return Resource{Kind: KindUser, OwnerID: userID} }

func Rating(authorID, storeOwnerID string) Resource {
	return Resource{Kind: KindRating, OwnerID: authorID, StoreOwnerID: storeOwnerID}
}

func Dashboard() Resource { return Resource{Kind: KindDashboard} }

type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// CanPerform evaluates the role rules in order; the first match wins and
// anything unmatched is denied.
func CanPerform(actor Actor, action Action, res Resource) Decision {
	if !knownAction(action) {
		return Deny
	}

	if actor.IsAnonymous() {
		return anonymous(action, res)
	}
	if actor.ID == "" {
		return Deny
	}

	switch actor.Role {
	case models.RoleAdmin:
		return Allow
	case models.RoleStoreOwner:
		return storeOwner(actor, action, res)
	case models.RoleUser:
		return user(actor, action, res)
	default:
		return Deny
	}
}

func storeOwner(actor Actor, action Action, res Resource) Decision {
	switch res.Kind {
	case KindStore:
		switch action {
		case ActionRead:
			return Allow
		case ActionUpdate:
			return owns(actor, res.OwnerID)
		}
	case KindUser:
		if action == ActionRead || action == ActionUpdate {
			return owns(actor, res.OwnerID)
		}
	case KindRating:
		if action == ActionRead {
			return owns(actor, res.StoreOwnerID)
		}
	}
	return Deny
}

func user(actor Actor, action Action, res Resource) Decision {
	switch res.Kind {
	case KindRating:
		switch action {
		case ActionCreate, ActionUpdate, ActionRead:
			return owns(actor, res.OwnerID)
		}
	case KindStore:
		if action == ActionRead {
			return Allow
		}
	case KindUser:
		if action == ActionRead || action == ActionUpdate {
			return owns(actor, res.OwnerID)
		}
	}
	return Deny
}

func anonymous(action Action, res Resource) Decision {
	switch {
	case res.Kind == KindStore && action == ActionRead:
		return Allow
	case res.Kind == KindUser && action == ActionCreate:
		return Allow
	}
	return Deny
}

// owns never matches an empty owner.
func owns(actor Actor, ownerID string) Decision {
	return Decision(ownerID != "" && ownerID == actor.ID)
}

func knownAction(a Action) bool {
	switch a {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}
