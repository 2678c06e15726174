package core

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func numericFrom(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func TestFormatCSVValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "BioGen", "BioGen"},
		{"date", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), "2024-03-15"},
		{"decimal numeric", numericFrom(t, "1234.5"), "1234.50"},
		{"integral numeric", numericFrom(t, "200"), "200"},
		{"negative numeric", numericFrom(t, "-42.25"), "-42.25"},
		{"null numeric", pgtype.Numeric{}, ""},
		{"int", int32(7), "7"},
	}

	for _, tt := range tests {
		if got := formatCSVValue(tt.in); got != tt.want {
			t.Errorf("%s: formatCSVValue(%v) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}
