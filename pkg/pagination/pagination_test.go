package pagination

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	n := Normalize(Params{})
	if n.Page != DefaultPage || n.Limit != DefaultLimit {
		t.Fatalf("unexpected defaults page=%d limit=%d", n.Page, n.Limit)
	}
}

func TestNormalizeCapsLimit(t *testing.T) {
	n := Normalize(Params{Page: 2, Limit: 500})
	if n.Limit != MaxLimit {
		t.Fatalf("expected limit capped at %d, got %d", MaxLimit, n.Limit)
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0 for defaults, got %d", got)
	}
}

func TestNewMetaFirstPage(t *testing.T) {
	meta := NewMeta(23, Params{Page: 1, Limit: 10})
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 total pages, got %d", meta.TotalPages)
	}
	if !meta.HasNextPage || meta.HasPreviousPage {
		t.Fatalf("unexpected flags %+v", meta)
	}
}

func TestNewMetaLastPage(t *testing.T) {
	meta := NewMeta(23, Params{Page: 3, Limit: 10})
	if meta.HasNextPage || !meta.HasPreviousPage {
		t.Fatalf("unexpected flags %+v", meta)
	}
}

func TestNewMetaEmptyResult(t *testing.T) {
	meta := NewMeta(0, Params{Page: 1, Limit: 10})
	if meta.TotalPages != 0 {
		t.Fatalf("expected 0 total pages, got %d", meta.TotalPages)
	}
	if meta.HasNextPage || meta.HasPreviousPage {
		t.Fatalf("unexpected flags %+v", meta)
	}
}
