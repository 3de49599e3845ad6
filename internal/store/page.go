package store

import (
	"errors"
	"strconv"
)

const (
	DefaultPageSize int64 = 20
	MaxPageSize     int64 = 100
)

var ErrInvalidPage = errors.New("invalid pagination params")

// ParsePage reads page and limit query values. Empty values take the
// defaults; anything unparsable or out of range is rejected rather than
// clamped, so callers can answer 400.
func ParsePage(page, limit string) (int64, int64, error) {
	p, err := pageValue(page, 1)
	if err != nil || p < 1 {
		return 0, 0, ErrInvalidPage
	}
	l, err := pageValue(limit, DefaultPageSize)
	if err != nil || l < 1 || l > MaxPageSize {
		return 0, 0, ErrInvalidPage
	}
	return p, l, nil
}

func pageValue(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// pageBounds clamps already-parsed values into a skip and size for Find.
func pageBounds(page, limit int64) (skip, size int64) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return (page - 1) * limit, limit
}
