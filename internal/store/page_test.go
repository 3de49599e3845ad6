package store

import (
	"errors"
	"testing"
)

func TestParsePage(t *testing.T) {
	page, limit, err := ParsePage("", "")
	if err != nil || page != 1 || limit != DefaultPageSize {
		t.Fatalf("unexpected defaults %d %d %v", page, limit, err)
	}
	if page, limit, err = ParsePage("3", "100"); err != nil || page != 3 || limit != 100 {
		t.Fatalf("unexpected values %d %d %v", page, limit, err)
	}
	for _, bad := range [][2]string{{"0", "10"}, {"x", ""}, {"1", "0"}, {"1", "101"}, {"-2", ""}, {"", "ten"}} {
		if _, _, err := ParsePage(bad[0], bad[1]); !errors.Is(err, ErrInvalidPage) {
			t.Fatalf("expected ErrInvalidPage for %v, got %v", bad, err)
		}
	}
}

func TestPageBounds(t *testing.T) {
	cases := []struct {
		page, limit, skip, size int64
	}{
		{0, 0, 0, 20},
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{2, 500, 100, 100},
	}
	for _, tc := range cases {
		skip, size := pageBounds(tc.page, tc.limit)
		if skip != tc.skip || size != tc.size {
			t.Fatalf("pageBounds(%d,%d) = (%d,%d), want (%d,%d)", tc.page, tc.limit, skip, size, tc.skip, tc.size)
		}
	}
}
