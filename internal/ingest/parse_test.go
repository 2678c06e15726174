package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/biogene/stockdash/internal/catalog"
)

// buildWorkbook writes rows into a fresh in-memory workbook, starting at A1.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Biogene Stock Report"}, // title banner above the table
		{},
		{"Invoice No.", "Invoice Date", "Customer Name", "Station", "Brand", "Item Code", "Taxable Value", "Dispatch Date", "Delivery Date"},
		{"INV-001", "3/1/2024", "Acme Labs", "Mumbai", "BioGen", "BG-100", "1,250.00", "3/2/2024", "3/5/2024"},
		{"INV-002", "3/2/2024", "Orbit Pharma", "Delhi", "BioGen", "BG-200", "₹980.50", "3/3/2024", "3/6/2024"},
		{},
		{"INV-003", "3/3/2024", "Acme Labs", "", "CellCore", "CC-050", "", "3/4/2024", "3/4/2024"},
	})

	res, err := Parse("report.xlsx", data, Options{HomeStations: []string{"Mumbai"}})
	if err != nil {
		t.Fatal(err)
	}

	if res.HeaderRow != 2 {
		t.Errorf("HeaderRow = %d, want 2", res.HeaderRow)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(res.Rows))
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}

	first := res.Rows[0]
	if first.InvoiceNumber.String != "INV-001" {
		t.Errorf("invoice number = %q", first.InvoiceNumber.String)
	}
	if !first.InvoiceDate.Valid || first.InvoiceDate.Time.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("invoice date = %+v", first.InvoiceDate)
	}
	if !first.TaxableValue.Valid {
		t.Error("taxable value should parse despite thousands separator")
	}
	if !first.Amount.Valid {
		t.Error("amount should derive from taxable value")
	}
	if first.DeliveryTimeDays.Int32 != 3 {
		t.Errorf("delivery days = %d, want 3", first.DeliveryTimeDays.Int32)
	}
	if first.Segment != SegmentLocal {
		t.Errorf("segment = %q, want local", first.Segment)
	}

	if res.Rows[1].Segment != SegmentOutstation {
		t.Errorf("Delhi segment = %q, want outstation", res.Rows[1].Segment)
	}
	if res.Rows[2].Segment != SegmentOther {
		t.Errorf("blank station segment = %q, want other", res.Rows[2].Segment)
	}
	if res.Rows[2].TaxableValue.Valid {
		t.Error("empty taxable cell should be invalid")
	}

	// Columns absent from the sheet are reported missing.
	missing := strings.Join(res.Missing, ",")
	for _, want := range []string{catalog.PurchaseValue, catalog.ClosingBalance, catalog.GoodsRecdDate} {
		if !strings.Contains(missing, want) {
			t.Errorf("missing list %q lacks %s", missing, want)
		}
	}
}

func TestParseCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"Invoice No,Invoice Date,Party Name,City,Taxable Value",
		"INV-9,15-Mar-2024,Zenith Traders,Nagpur,\"2,500\"",
		"INV-10,16-Mar-2024,Zenith Traders,Nagpur,3000",
	}, "\n")

	res, err := Parse("export.csv", []byte(csvData), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if res.HeaderRow != 0 {
		t.Errorf("HeaderRow = %d, want 0", res.HeaderRow)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}

	// "Party Name" and "City" resolve through aliases.
	if got := res.Rows[0].CustomerName.String; got != "Zenith Traders" {
		t.Errorf("customer = %q", got)
	}
	if got := res.Rows[0].Station.String; got != "Nagpur" {
		t.Errorf("station = %q", got)
	}

	// No home stations configured: every station is outstation.
	if res.Rows[0].Segment != SegmentOutstation {
		t.Errorf("segment = %q", res.Rows[0].Segment)
	}
}

func TestParseNoHeaderRow(t *testing.T) {
	csvData := "just,some,random\ncells,with,nothing\n"

	_, err := Parse("junk.csv", []byte(csvData), Options{})
	if !errors.Is(err, ErrNoHeaderRow) {
		t.Errorf("err = %v, want ErrNoHeaderRow", err)
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := Parse("empty.csv", nil, Options{}); err == nil {
		t.Error("expected an error for an empty file")
	}
}

func TestParseShortRecords(t *testing.T) {
	// Trailing cells are often absent in CSV exports; short records pad
	// with NULLs instead of panicking.
	csvData := strings.Join([]string{
		"Invoice No,Invoice Date,Customer Name,Taxable Value",
		"INV-1,1/2/2024",
	}, "\n")

	res, err := Parse("short.csv", []byte(csvData), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows", len(res.Rows))
	}
	if res.Rows[0].CustomerName.Valid {
		t.Error("customer name should be NULL for a short record")
	}
	if res.Rows[0].TaxableValue.Valid {
		t.Error("taxable value should be NULL for a short record")
	}
}

func TestFindHeaderRowPicksBestScore(t *testing.T) {
	// The banner row's lone "Date" cell substring-matches every date field,
	// but the real header row resolves more columns and must win.
	rows := [][]string{
		{"Report", "Date", "2024"},
		{"Invoice No", "Invoice Date", "Customer Name", "Brand", "Item Code", "Station"},
		{"INV-1", "1/1/2024", "Acme", "BioGen", "BG-1", "Mumbai"},
	}

	if got := findHeaderRow(rows, catalog.Fields()); got != 1 {
		t.Errorf("findHeaderRow = %d, want 1", got)
	}
}
