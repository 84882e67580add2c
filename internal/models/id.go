package models

import "github.com/google/uuid"

// NewID returns a UUIDv7 string. Ids from one process sort in creation
// order, which listings use to break created_at ties.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	v, err := NewID()
	if err != nil {
		return err
	}
	*id = v
	return nil
}
