package ingest

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func date(s string) pgtype.Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return pgtype.Date{Time: t, Valid: true}
}

func num(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

func TestDeriveAmount(t *testing.T) {
	taxable := num("100.50")
	purchase := num("95.00")

	if got := deriveAmount(taxable, purchase); !got.Valid || got.Int.String() != taxable.Int.String() {
		t.Errorf("taxable present: got %+v", got)
	}
	if got := deriveAmount(pgtype.Numeric{}, purchase); !got.Valid || got.Int.String() != purchase.Int.String() {
		t.Errorf("taxable absent: got %+v", got)
	}
	if got := deriveAmount(pgtype.Numeric{}, pgtype.Numeric{}); got.Valid {
		t.Errorf("both absent: got %+v", got)
	}
}

func TestDeriveDeliveryDays(t *testing.T) {
	tests := []struct {
		name      string
		dispatch  pgtype.Date
		goodsRecd pgtype.Date
		delivery  pgtype.Date
		want      int32
		wantValid bool
	}{
		{
			name:     "dispatch to delivery",
			dispatch: date("2024-03-01"), delivery: date("2024-03-04"),
			want: 3, wantValid: true,
		},
		{
			name:      "goods recd fallback",
			goodsRecd: date("2024-03-01"), delivery: date("2024-03-06"),
			want: 5, wantValid: true,
		},
		{
			name:     "dispatch preferred over goods recd",
			dispatch: date("2024-03-02"), goodsRecd: date("2024-02-01"), delivery: date("2024-03-04"),
			want: 2, wantValid: true,
		},
		{
			name:     "same day",
			dispatch: date("2024-03-01"), delivery: date("2024-03-01"),
			want: 0, wantValid: true,
		},
		{
			name:     "negative span",
			dispatch: date("2024-03-10"), delivery: date("2024-03-01"),
			wantValid: false,
		},
		{
			name:      "no delivery date",
			dispatch:  date("2024-03-01"),
			wantValid: false,
		},
		{
			name:      "no start date",
			delivery:  date("2024-03-04"),
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveDeliveryDays(tt.dispatch, tt.goodsRecd, tt.delivery)
			if got.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.Valid && got.Int32 != tt.want {
				t.Errorf("days = %d, want %d", got.Int32, tt.want)
			}
		})
	}
}

func TestDayName(t *testing.T) {
	// 2024-03-04 is a Monday.
	got := dayName(date("2024-03-04"))
	if !got.Valid || got.String != "Monday" {
		t.Errorf("got %+v", got)
	}

	if dayName(pgtype.Date{}).Valid {
		t.Error("invalid date should yield invalid day name")
	}
}

func TestClassifySegment(t *testing.T) {
	home := homeStationSet([]string{"Mumbai", " Pune "})

	tests := []struct {
		station string
		valid   bool
		want    string
	}{
		{"Mumbai", true, SegmentLocal},
		{"MUMBAI", true, SegmentLocal},
		{"pune", true, SegmentLocal},
		{"Delhi", true, SegmentOutstation},
		{"  ", true, SegmentOther},
		{"", false, SegmentOther},
	}

	for _, tt := range tests {
		st := pgtype.Text{String: tt.station, Valid: tt.valid}
		if got := classifySegment(st, home); got != tt.want {
			t.Errorf("classifySegment(%q, valid=%v) = %q, want %q", tt.station, tt.valid, got, tt.want)
		}
	}
}
