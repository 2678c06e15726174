package catalog

import (
	"testing"

	"github.com/biogene/stockdash/internal/resolve"
)

func TestColumnsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Columns() {
		if c.Field.Name == "" {
			t.Error("column with empty canonical name")
		}
		if seen[c.Field.Name] {
			t.Errorf("duplicate canonical column: %s", c.Field.Name)
		}
		seen[c.Field.Name] = true
	}
}

func TestLookup(t *testing.T) {
	col, ok := Lookup(TaxableValue)
	if !ok {
		t.Fatal("taxable_value not found")
	}
	if col.Kind != Numeric {
		t.Errorf("taxable_value kind = %v, want Numeric", col.Kind)
	}

	if _, ok := Lookup("no_such_field"); ok {
		t.Error("Lookup returned a column for an unknown name")
	}
}

func TestFieldsResolveRealWorldHeaders(t *testing.T) {
	// Header row lifted from an actual customer export.
	headers := []string{
		"Invoice No.", "Invoice Date", "Customer Name", "Station",
		"Brand", "Item Code", "Discription", "Taxable Value",
		"Dispatch Date", "Delivery Date", "Closing Balance",
	}

	m := resolve.ResolveAll(headers, Fields())

	want := map[string]string{
		InvoiceNumber:  "Invoice No.",
		InvoiceDate:    "Invoice Date",
		CustomerName:   "Customer Name",
		Station:        "Station",
		Brand:          "Brand",
		ItemCode:       "Item Code",
		Description:    "Discription",
		TaxableValue:   "Taxable Value",
		DispatchDate:   "Dispatch Date",
		DeliveryDate:   "Delivery Date",
		ClosingBalance: "Closing Balance",
	}
	for field, header := range want {
		if got := m[field]; got != header {
			t.Errorf("%s resolved to %q, want %q", field, got, header)
		}
	}

	for _, absent := range []string{GoodsRecdDate, PurchaseValue, InQty, OutQty} {
		if got, ok := m[absent]; ok {
			t.Errorf("%s should be unresolved, got %q", absent, got)
		}
	}
}

func TestKindListsPartitionCatalog(t *testing.T) {
	total := len(DateFields()) + len(NumericFields()) + len(TextFields())
	if total != len(Columns()) {
		t.Errorf("kind lists cover %d columns, catalog has %d", total, len(Columns()))
	}
}
