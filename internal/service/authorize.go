package service

import (
	"errors"

	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"gorm.io/gorm"
)

// authorize turns a policy denial into ErrUnauthorized for anonymous
// callers and ErrForbidden for everyone else.
func authorize(actor policy.Actor, action policy.Action, res policy.Resource) error {
	if policy.CanPerform(actor, action, res) {
		return nil
	}
	if actor.IsAnonymous() {
		return ErrUnauthorized
	}
	return ErrForbidden
}

// isDuplicateKey reports a unique index violation. The database is opened
// with TranslateError so every driver reports gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
