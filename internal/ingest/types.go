package ingest

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/biogene/stockdash/internal/resolve"
)

// Segment values a row can be classified into, based on its station.
const (
	SegmentLocal      = "local"
	SegmentOutstation = "outstation"
	SegmentOther      = "other"
)

// Row is one sheet line after header resolution, cell coercion, and
// derivation. Every field is nullable; a sheet missing a column yields
// invalid pgtype values for it across all rows.
type Row struct {
	InvoiceNumber pgtype.Text
	InvoiceDate   pgtype.Date
	GoodsRecdDate pgtype.Date
	DispatchDate  pgtype.Date
	DeliveryDate  pgtype.Date
	CustomerName  pgtype.Text
	Station       pgtype.Text
	Brand         pgtype.Text
	ItemCode      pgtype.Text
	Description   pgtype.Text

	TaxableValue   pgtype.Numeric
	PurchaseValue  pgtype.Numeric
	ClosingBalance pgtype.Numeric
	InQty          pgtype.Numeric
	OutQty         pgtype.Numeric
	UnitPrice      pgtype.Numeric

	// Derived fields, computed after coercion.
	Amount           pgtype.Numeric
	DeliveryTimeDays pgtype.Int4
	DispatchDay      pgtype.Text
	DeliveryDay      pgtype.Text
	InvoiceDay       pgtype.Text
	Segment          string
}

// Result is everything ingestion produced from one uploaded file.
type Result struct {
	SheetName string
	HeaderRow int // zero-based index in the raw grid
	Headers   []string
	Mapping   resolve.Mapping
	Missing   []string // canonical fields with no resolved header, catalog order
	Rows      []Row
	Skipped   int // blank data rows dropped
}

// Options tunes ingestion for a deployment.
type Options struct {
	// HomeStations are the stations treated as local. Matching is
	// case-insensitive on the trimmed station value.
	HomeStations []string
}
