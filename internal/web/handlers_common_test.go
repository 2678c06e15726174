package web

import (
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		url  string
		name string
		def  int
		want int
	}{
		{"/rows?page=3", "page", 1, 3},
		{"/rows", "page", 1, 1},
		{"/rows?page=abc", "page", 1, 1},
		{"/rows?page=0", "page", 1, 1},
		{"/rows?page=-5", "page", 1, 1},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := parseIntParam(r, tt.name, tt.def); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestParseSorts(t *testing.T) {
	r := httptest.NewRequest("GET", "/rows?sort=invoice_date,amount&dir=desc,asc", nil)
	sorts := parseSorts(r)

	if len(sorts) != 2 {
		t.Fatalf("got %d sorts, want 2", len(sorts))
	}
	if sorts[0].Column != "invoice_date" || sorts[0].Dir != "desc" {
		t.Errorf("sort[0] = %+v", sorts[0])
	}
	if sorts[1].Column != "amount" || sorts[1].Dir != "asc" {
		t.Errorf("sort[1] = %+v", sorts[1])
	}
}

func TestParseSorts_LimitsToTwo(t *testing.T) {
	r := httptest.NewRequest("GET", "/rows?sort=a,b,c,d", nil)
	if sorts := parseSorts(r); len(sorts) != 2 {
		t.Errorf("got %d sorts, want 2", len(sorts))
	}
}

func TestParseSorts_Empty(t *testing.T) {
	r := httptest.NewRequest("GET", "/rows", nil)
	if sorts := parseSorts(r); sorts != nil {
		t.Errorf("got %v, want nil", sorts)
	}
}

func TestParseSorts_DefaultsToAsc(t *testing.T) {
	r := httptest.NewRequest("GET", "/rows?sort=brand&dir=sideways", nil)
	sorts := parseSorts(r)
	if len(sorts) != 1 || sorts[0].Dir != "asc" {
		t.Errorf("got %+v, want brand asc", sorts)
	}
}

func TestParseRowFilter(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/rows?dataset=ds-1&segment=Local&from=2024-01-01&to=2024-06-30&customers=Acme,%20Globex%20&brands=BioGen&q=%20serum%20", nil)

	f := parseRowFilter(r)

	if f.DatasetID != "ds-1" {
		t.Errorf("DatasetID = %q", f.DatasetID)
	}
	if f.Segment != "local" {
		t.Errorf("Segment = %q, want lowercased", f.Segment)
	}
	if f.From == nil || !f.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("From = %v", f.From)
	}
	if f.To == nil || !f.To.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("To = %v", f.To)
	}
	if !reflect.DeepEqual(f.Customers, []string{"Acme", "Globex"}) {
		t.Errorf("Customers = %v", f.Customers)
	}
	if !reflect.DeepEqual(f.Brands, []string{"BioGen"}) {
		t.Errorf("Brands = %v", f.Brands)
	}
	if f.Search != "serum" {
		t.Errorf("Search = %q", f.Search)
	}
}

func TestParseRowFilter_Empty(t *testing.T) {
	r := httptest.NewRequest("GET", "/rows", nil)
	f := parseRowFilter(r)

	if f.DatasetID != "" || f.From != nil || f.To != nil || f.Customers != nil || f.Search != "" {
		t.Errorf("expected zero filter, got %+v", f)
	}
}

func TestParseDateParam_Invalid(t *testing.T) {
	if got := parseDateParam("not-a-date"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := parseDateParam("2024-13-45"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := parseDateParam(""); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestParseListParam(t *testing.T) {
	got := parseListParam(" a ,, b ,")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
	if parseListParam("") != nil {
		t.Error("empty value should yield nil")
	}
}
