package core

import (
	"reflect"
	"testing"
	"time"
)

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb == nil {
		t.Fatal("NewWhereBuilder returned nil")
	}
	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}
	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}
	if len(wb.args) != 0 {
		t.Errorf("expected empty args, got %d", len(wb.args))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	whereClause, args := wb.Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("segment", "local")
	wb.Add("station", "") // skipped

	whereClause, args := wb.Build()

	if whereClause != " WHERE segment = $1" {
		t.Errorf("got %q", whereClause)
	}
	if len(args) != 1 || args[0] != "local" {
		t.Errorf("got args %v", args)
	}
}

func TestWhereBuilder_AddDatasetID(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddDatasetID("abc-123")

	whereClause, args := wb.Build()

	if whereClause != " WHERE dataset_id = $1" {
		t.Errorf("got %q", whereClause)
	}
	if len(args) != 1 || args[0] != "abc-123" {
		t.Errorf("got args %v", args)
	}

	wb = NewWhereBuilder()
	wb.AddDatasetID("")
	if clause, _ := wb.Build(); clause != "" {
		t.Errorf("empty ID should be skipped, got %q", clause)
	}
}

func TestWhereBuilder_AddDateRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder()
	wb.AddDateRange("invoice_date", &from, &to)

	whereClause, args := wb.Build()

	want := " WHERE invoice_date >= $1 AND invoice_date <= $2"
	if whereClause != want {
		t.Errorf("got %q, want %q", whereClause, want)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}

	// Only one bound.
	wb = NewWhereBuilder()
	wb.AddDateRange("invoice_date", nil, &to)
	whereClause, args = wb.Build()
	if whereClause != " WHERE invoice_date <= $1" || len(args) != 1 {
		t.Errorf("got %q with %d args", whereClause, len(args))
	}

	// No bounds.
	wb = NewWhereBuilder()
	wb.AddDateRange("invoice_date", nil, nil)
	if clause, _ := wb.Build(); clause != "" {
		t.Errorf("got %q", clause)
	}
}

func TestWhereBuilder_AddIn(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddIn("brand", []string{"BioGen", " CellCore ", ""})

	whereClause, args := wb.Build()

	want := " WHERE brand IN ($1, $2)"
	if whereClause != want {
		t.Errorf("got %q, want %q", whereClause, want)
	}
	if !reflect.DeepEqual(args, []interface{}{"BioGen", "CellCore"}) {
		t.Errorf("got args %v", args)
	}

	wb = NewWhereBuilder()
	wb.AddIn("brand", nil)
	if clause, _ := wb.Build(); clause != "" {
		t.Errorf("empty list should be skipped, got %q", clause)
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddSearch("acme", []string{"customer_name", "brand"})

	whereClause, args := wb.Build()

	want := ` WHERE ("customer_name" ILIKE $1 OR "brand" ILIKE $1)`
	if whereClause != want {
		t.Errorf("got %q, want %q", whereClause, want)
	}
	if len(args) != 1 || args[0] != "%acme%" {
		t.Errorf("got args %v", args)
	}

	wb = NewWhereBuilder()
	wb.AddSearch("", []string{"customer_name"})
	if clause, _ := wb.Build(); clause != "" {
		t.Errorf("empty query should be skipped, got %q", clause)
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.NextArgIndex() != 1 {
		t.Errorf("expected initial NextArgIndex to be 1, got %d", wb.NextArgIndex())
	}

	wb.Add("segment", "local")
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected NextArgIndex after 1 add to be 2, got %d", wb.NextArgIndex())
	}

	wb.AddIn("brand", []string{"a", "b"})
	if wb.NextArgIndex() != 4 {
		t.Errorf("expected NextArgIndex after IN to be 4, got %d", wb.NextArgIndex())
	}
}

func TestWhereBuilder_AddFilter(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder()
	wb.AddFilter(RowFilter{
		DatasetID: "ds-1",
		Segment:   "outstation",
		From:      &from,
		Customers: []string{"Acme"},
		Search:    "bio",
	}, []string{"customer_name", "brand"})

	whereClause, args := wb.Build()

	want := ` WHERE dataset_id = $1 AND segment = $2 AND invoice_date >= $3` +
		` AND customer_name IN ($4) AND ("customer_name" ILIKE $5 OR "brand" ILIKE $5)`
	if whereClause != want {
		t.Errorf("got  %q\nwant %q", whereClause, want)
	}
	if len(args) != 5 {
		t.Errorf("expected 5 args, got %d: %v", len(args), args)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"invoice_date", `"invoice_date"`},
		{`evil"name`, `"evil""name"`},
		{"", `""`},
	}

	for _, tt := range tests {
		if got := quoteIdentifier(tt.in); got != tt.want {
			t.Errorf("quoteIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortableColumn(t *testing.T) {
	if !sortableColumn("invoice_date") {
		t.Error("invoice_date should be sortable")
	}
	if !sortableColumn("amount") {
		t.Error("amount should be sortable")
	}
	if sortableColumn("id; DROP TABLE invoice_rows") {
		t.Error("unknown columns must not be sortable")
	}
}
