package ingest

// derive.go computes the columns that never appear in source sheets but
// every report depends on: a unified amount, delivery time, weekday names,
// and the local/outstation segment.

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// derive fills the computed fields of a row in place.
func derive(r *Row, home map[string]bool) {
	r.Amount = deriveAmount(r.TaxableValue, r.PurchaseValue)
	r.DeliveryTimeDays = deriveDeliveryDays(r.DispatchDate, r.GoodsRecdDate, r.DeliveryDate)
	r.DispatchDay = dayName(r.DispatchDate)
	r.DeliveryDay = dayName(r.DeliveryDate)
	r.InvoiceDay = dayName(r.InvoiceDate)
	r.Segment = classifySegment(r.Station, home)
}

// deriveAmount prefers the taxable value and falls back to the purchase
// value; invoice-style sheets carry the former, stock-style sheets the
// latter.
func deriveAmount(taxable, purchase pgtype.Numeric) pgtype.Numeric {
	if taxable.Valid {
		return taxable
	}
	return purchase
}

// deriveDeliveryDays is the whole days between dispatch and delivery. When
// the dispatch date is missing, the goods received date stands in for it.
// Negative spans mean mistyped dates and yield NULL.
func deriveDeliveryDays(dispatch, goodsRecd, delivery pgtype.Date) pgtype.Int4 {
	start := dispatch
	if !start.Valid {
		start = goodsRecd
	}
	if !start.Valid || !delivery.Valid {
		return pgtype.Int4{Valid: false}
	}

	days := int32(delivery.Time.Sub(start.Time).Hours() / 24)
	if days < 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: days, Valid: true}
}

// dayName returns the weekday name ("Monday".."Sunday") of a date.
func dayName(d pgtype.Date) pgtype.Text {
	if !d.Valid {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: d.Time.Weekday().String(), Valid: true}
}

// classifySegment buckets a row by its station: a configured home station is
// local, any other non-empty station is outstation, and rows without a
// station land in other.
func classifySegment(station pgtype.Text, home map[string]bool) string {
	if !station.Valid {
		return SegmentOther
	}
	s := strings.ToLower(strings.TrimSpace(station.String))
	if s == "" {
		return SegmentOther
	}
	if home[s] {
		return SegmentLocal
	}
	return SegmentOutstation
}

// homeStationSet lowercases and trims the configured home stations once per
// parse.
func homeStationSet(stations []string) map[string]bool {
	set := make(map[string]bool, len(stations))
	for _, s := range stations {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	return set
}
