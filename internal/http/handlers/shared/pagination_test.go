package shared

import "testing"

func TestNormalizePaginationDefaults(t *testing.T) {
	page, pageSize := NormalizePagination(0, 0)
	if page != 1 {
		t.Fatalf("page want 1 got %d", page)
	}
	if pageSize != defaultPageSize {
		t.Fatalf("page size want %d got %d", defaultPageSize, pageSize)
	}
}

func TestNormalizePaginationClampsUpperBound(t *testing.T) {
	page, pageSize := NormalizePagination(3, 5000)
	if page != 3 {
		t.Fatalf("page want 3 got %d", page)
	}
	if pageSize != maxPageSize {
		t.Fatalf("page size want %d got %d", maxPageSize, pageSize)
	}
}

func TestNormalizePaginationKeepsValidInput(t *testing.T) {
	page, pageSize := NormalizePagination(2, 50)
	if page != 2 || pageSize != 50 {
		t.Fatalf("want (2, 50) got (%d, %d)", page, pageSize)
	}
}

func TestNormalizePaginationNegativeValues(t *testing.T) {
	page, pageSize := NormalizePagination(-7, -10)
	if page != 1 {
		t.Fatalf("page want 1 got %d", page)
	}
	if pageSize != defaultPageSize {
		t.Fatalf("page size want %d got %d", defaultPageSize, pageSize)
	}
}
