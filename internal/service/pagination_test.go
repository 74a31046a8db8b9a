package service

import "testing"

func TestPaginationHelpers(t *testing.T) {
	if got := normalizePage(0); got != 1 {
		t.Fatalf("expected page 1, got %d", got)
	}
	if got := normalizePerPage(0, defaultPerPage); got != defaultPerPage {
		t.Fatalf("expected default per page, got %d", got)
	}
	if got := normalizePerPage(500, defaultPerPage); got != maxPerPage {
		t.Fatalf("expected per page clamped to %d, got %d", maxPerPage, got)
	}
	if got := calculateTotalPages(21, 10); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	if got := calculateTotalPages(0, 10); got != 1 {
		t.Fatalf("expected an empty result to report 1 page, got %d", got)
	}

	cases := []struct {
		limit, want int
	}{
		{limit: 0, want: 3},
		{limit: -1, want: 3},
		{limit: 7, want: 7},
		{limit: 50, want: 10},
	}
	for _, tc := range cases {
		if got := clampLimit(tc.limit, 3, 10); got != tc.want {
			t.Fatalf("clampLimit(%d): expected %d, got %d", tc.limit, tc.want, got)
		}
	}
}
