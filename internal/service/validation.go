package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minNameLength      = 5
	maxNameLength      = 40
	maxEmailLength     = 100
	maxAddressLength   = 400
	minPasswordLength  = 8
	maxPasswordLength  = 16
	maxStoreNameLength = 100
	maxCommentLength   = 500

	passwordSpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(v *ValidationError, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n < minNameLength:
		v.Add("name", "name must be at least 5 characters")
	case n > maxNameLength:
		v.Add("name", "name must be at most 40 characters")
	}
}

func validateEmail(v *ValidationError, field, email string) {
	switch {
	case email == "":
		v.Add(field, "email is required")
	case len(email) > maxEmailLength:
		v.Add(field, "email must be at most 100 characters")
	case !emailRegex.MatchString(email):
		v.Add(field, "invalid email format")
	}
}

func validateAddress(v *ValidationError, address string) {
	switch {
	case strings.TrimSpace(address) == "":
		v.Add("address", "address is required")
	case utf8.RuneCountInString(address) > maxAddressLength:
		v.Add("address", "address must be at most 400 characters")
	}
}

// validatePassword enforces 8-16 characters with at least one uppercase
// letter and one special character.
func validatePassword(v *ValidationError, field, password string) {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		v.Add(field, "password must be 8-16 characters")
		return
	}

	var upper, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSpecialChars, r):
			special = true
		}
	}
	if !upper {
		v.Add(field, "password must contain an uppercase letter")
		return
	}
	if !special {
		v.Add(field, "password must contain a special character")
	}
}

func validateStoreName(v *ValidationError, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		v.Add("name", "name is required")
	case n > maxStoreNameLength:
		v.Add("name", "name must be at most 100 characters")
	}
}

func validateComment(v *ValidationError, comment *string) {
	if comment != nil && utf8.RuneCountInString(*comment) > maxCommentLength {
		v.Add("comment", "comment must be at most 500 characters")
	}
}
