// Package query implements the in-memory search and ordering used by the
// listing endpoints.
package query

import (
	"cmp"
	"errors"
	"slices"
	"strings"
)

var ErrUnknownSortKey = errors.New("unknown sort key")

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection defaults to ascending for anything but "desc".
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Field exposes one attribute of T for searching or sorting. Exactly one of
// Text or Number is set.
type Field[T any] struct {
	Name   string
	Text   func(T) string
	Number func(T) float64
}

func TextField[T any](name string, fn func(T) string) Field[T] {
	return Field[T]{Name: name, Text: fn}
}

func NumberField[T any](name string, fn func(T) float64) Field[T] {
	return Field[T]{Name: name, Number: fn}
}

// Search keeps the records where any text field contains term, ignoring
// case. The input order is preserved and an empty term returns every record.
func Search[T any](records []T, term string, fields ...Field[T]) []T {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return records
	}

	out := make([]T, 0, len(records))
	for _, r := range records {
		for _, f := range fields {
			if f.Text != nil && strings.Contains(strings.ToLower(f.Text(r)), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// MatchField is Search restricted to a single field.
func MatchField[T any](records []T, term string, field Field[T]) []T {
	return Search(records, term, field)
}

// Sort orders records by the field named key. It is stable, so ties keep
// their original order. An empty key leaves the records untouched.
func Sort[T any](records []T, key string, dir Direction, fields []Field[T]) ([]T, error) {
	if key == "" {
		return records, nil
	}

	idx := slices.IndexFunc(fields, func(f Field[T]) bool { return strings.EqualFold(f.Name, key) })
	if idx < 0 {
		return nil, ErrUnknownSortKey
	}
	f := fields[idx]

	compare := func(a, b T) int {
		if f.Number != nil {
			return cmp.Compare(f.Number(a), f.Number(b))
		}
		return strings.Compare(strings.ToLower(f.Text(a)), strings.ToLower(f.Text(b)))
	}

	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int {
		if dir == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out, nil
}

// SortKeys lists the names accepted by Sort, for error messages.
func SortKeys[T any](fields []Field[T]) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
