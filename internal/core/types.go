package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// UploadPhase indicates the current stage of upload processing.
type UploadPhase string

const (
	PhaseStarting  UploadPhase = "starting"
	PhaseReading   UploadPhase = "reading"
	PhaseResolving UploadPhase = "resolving"
	PhaseInserting UploadPhase = "inserting"
	PhaseComplete  UploadPhase = "complete"
	PhaseFailed    UploadPhase = "failed"
	PhaseCancelled UploadPhase = "cancelled"
)

// UploadProgress represents the current state of an upload operation.
type UploadProgress struct {
	UploadID   string      `json:"uploadId"`
	DatasetID  string      `json:"datasetId,omitempty"`
	Phase      UploadPhase `json:"phase"`
	FileName   string      `json:"fileName"`
	TotalRows  int         `json:"totalRows"`
	CurrentRow int         `json:"currentRow"`
	Inserted   int         `json:"inserted"`
	Skipped    int         `json:"skipped"`
	Error      string      `json:"error,omitempty"` // Non-empty if Phase is PhaseFailed
}

// Percent returns the progress as a percentage (0-100).
func (p UploadProgress) Percent() int {
	if p.TotalRows > 0 {
		return (p.CurrentRow * 100) / p.TotalRows
	}
	return 0
}

// UploadResult contains the final result of an upload operation.
type UploadResult struct {
	UploadID  string            `json:"uploadId"`
	DatasetID string            `json:"datasetId,omitempty"`
	FileName  string            `json:"fileName"`
	SheetName string            `json:"sheetName,omitempty"`
	TotalRows int               `json:"totalRows"`
	Inserted  int               `json:"inserted"`
	Skipped   int               `json:"skipped"`
	Mapping   map[string]string `json:"mapping,omitempty"` // canonical field -> raw header
	Missing   []string          `json:"missing,omitempty"` // canonical fields absent from the sheet
	Duration  time.Duration     `json:"duration"`
	Error     string            `json:"error,omitempty"` // Non-empty if upload failed
}

// Dataset is one uploaded file at rest.
type Dataset struct {
	ID         string            `json:"id"`
	FileName   string            `json:"fileName"`
	SheetName  string            `json:"sheetName,omitempty"`
	RowCount   int64             `json:"rowCount"`
	Headers    []string          `json:"headers,omitempty"` // raw headers as uploaded
	Mapping    map[string]string `json:"mapping,omitempty"`
	Missing    []string          `json:"missing,omitempty"`
	UploadedAt time.Time         `json:"uploadedAt"`
}

// RowFilter narrows queries over invoice rows. Zero values mean "no
// constraint". All conditions combine with AND.
type RowFilter struct {
	DatasetID string
	Segment   string // local, outstation, or other
	From      *time.Time
	To        *time.Time
	Customers []string
	Brands    []string
	Items     []string
	Search    string // free text across text columns
}

// SortSpec represents a single sort column and direction.
type SortSpec struct {
	Column string // canonical column name
	Dir    string // "asc" or "desc"
}

// InvoiceRow is one stored row, keyed by canonical column name. Values come
// straight from pgx row scans; numeric columns arrive as pgtype values and
// dates as time.Time.
type InvoiceRow map[string]interface{}

// RowsPage contains paginated row data.
type RowsPage struct {
	Rows       []InvoiceRow `json:"rows"`
	TotalRows  int64        `json:"totalRows"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
	Sorts      []SortSpec   `json:"sorts,omitempty"`
}

// KPIs are the dashboard headline figures for a filtered row set.
type KPIs struct {
	RowCount            int64    `json:"rowCount"`
	InvoiceCount        int64    `json:"invoiceCount"` // distinct invoice numbers
	TotalAmount         float64  `json:"totalAmount"`
	AvgDeliveryDays     *float64 `json:"avgDeliveryDays,omitempty"` // nil when no row has a delivery span
	TotalClosingBalance float64  `json:"totalClosingBalance"`
}

// WeeklyPoint is one week of invoiced amount.
type WeeklyPoint struct {
	WeekStart time.Time `json:"weekStart"`
	Amount    float64   `json:"amount"`
	Rows      int64     `json:"rows"`
}

// CustomerTotal is one customer's aggregate for the top-customers report.
type CustomerTotal struct {
	Customer string  `json:"customer"`
	Amount   float64 `json:"amount"`
	Rows     int64   `json:"rows"`
}

// HistogramBin is one bucket of the delivery-time distribution.
type HistogramBin struct {
	Label string `json:"label"` // e.g. "0-2", "3-5", "15+"
	From  int    `json:"from"`
	To    int    `json:"to"` // inclusive; -1 for the open-ended last bin
	Count int64  `json:"count"`
}

// ItemMovement is one item's stock movement for the top-items report.
type ItemMovement struct {
	ItemCode       string  `json:"itemCode"`
	Description    string  `json:"description,omitempty"`
	InQty          float64 `json:"inQty"`
	OutQty         float64 `json:"outQty"`
	ClosingBalance float64 `json:"closingBalance"`
	Rows           int64   `json:"rows"`
}

// BrandShare is one brand's slice of the total amount.
type BrandShare struct {
	Brand   string  `json:"brand"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// DayMatrix counts rows by dispatch weekday crossed with delivery weekday.
// Days run Monday through Sunday; Cells[i][j] is the count for dispatch day
// i and delivery day j.
type DayMatrix struct {
	Days  []string  `json:"days"`
	Cells [][]int64 `json:"cells"`
}
