package store

import "testing"

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 5, 5},
		{26, 5, 6},
		{7, 1, 7},
		{7, 0, 0},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.pageSize, got, tt.want)
		}
	}
}

func TestPageRequestOffset(t *testing.T) {
	if got := (PageRequest{Page: 1, PageSize: 10}).Offset(); got != 0 {
		t.Errorf("Offset of first page = %d, want 0", got)
	}
	if got := (PageRequest{Page: 3, PageSize: 25}).Offset(); got != 50 {
		t.Errorf("Offset of third page = %d, want 50", got)
	}
}

func TestSortClause(t *testing.T) {
	tests := []struct {
		name string
		key  string
		desc bool
		want string
	}{
		{"known key", "amount", false, "total_amount ASC, id ASC"},
		{"descending", "status", true, "status DESC, id DESC"},
		{"unknown falls back", "id; DROP TABLE orders", true, "order_date DESC, id DESC"},
		{"empty falls back", "", false, "order_date ASC, id ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sortClause(orderSortColumns, tt.key, "date", "id", tt.desc); got != tt.want {
				t.Errorf("sortClause = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewOffsetPageNeverNil(t *testing.T) {
	page := newOffsetPage[int](nil, 0, PageRequest{Page: 2, PageSize: 5})
	if page.Data == nil {
		t.Fatal("Data should be an empty slice, not nil")
	}
	if page.CurrentPage != 2 || page.PageSize != 5 || page.TotalPages != 0 {
		t.Errorf("Unexpected envelope: %+v", page)
	}
}
